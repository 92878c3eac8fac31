package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
	"new_db_canvas_size": 256,
	"setpixel_max_rate": 5,
	"setpixel_per_seconds": 10,
	"max_concurrent_users": 100,
	"listen_url": ":9090",
	"dbase_file": "test.sqlite",
	"colors": [[255,255,255,0],[0,0,0,1],[255,0,0,2]],
	"administrators": [{"uuid":"admin-1","shutdown":true,"announce":false,"shadowban":true,"banclick":false,"cleanup":true}]
}`

func writeSampleConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o644))
	return path
}

func TestLoad_ParsesFileAndColors(t *testing.T) {
	cfg, _, err := Load(writeSampleConfig(t))
	require.NoError(t, err)
	require.Equal(t, 256, cfg.NewDBCanvasSize)
	require.Equal(t, ":9090", cfg.ListenURL)
	require.Len(t, cfg.Colors, 3)
	require.Equal(t, ColorEntry{R: 255, G: 255, B: 255, ID: 0}, cfg.Colors[0])
	require.Len(t, cfg.Administrators, 1)
	require.True(t, cfg.Administrators[0].Shutdown)
	require.True(t, cfg.Administrators[0].ShadowBan)
}

func TestLoad_DefaultsApplyWithoutFile(t *testing.T) {
	_, _, err := Load("")
	// No colors configured and no file: validation should fail because the
	// palette defaults to empty.
	require.Error(t, err)
}

func TestLoad_RejectsEmptyListenURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"listen_url":"","colors":[[0,0,0,0]]}`), 0o644))

	_, _, err := Load(path)
	require.Error(t, err)
}

func TestPaletteAndAdminCapabilities_Convert(t *testing.T) {
	cfg, _, err := Load(writeSampleConfig(t))
	require.NoError(t, err)

	palette := cfg.Palette()
	require.Len(t, palette, 3)
	require.Equal(t, uint8(255), palette[0].R)

	admins := cfg.AdminCapabilities()
	require.Len(t, admins, 1)
	require.Equal(t, "admin-1", admins[0].UUID)
}

func TestReload_ReReadsUpdatedFile(t *testing.T) {
	path := writeSampleConfig(t)
	_, v, err := Load(path)
	require.NoError(t, err)

	updated := `{"new_db_canvas_size":256,"listen_url":":9090","dbase_file":"test.sqlite","max_concurrent_users":100,"colors":[[1,2,3,0]],"administrators":[]}`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	cfg, err := Reload(v)
	require.NoError(t, err)
	require.Len(t, cfg.Colors, 1)
	require.Empty(t, cfg.Administrators)
}
