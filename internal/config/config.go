// Package config is the Config Layer from SPEC_FULL.md §1/§2: Viper-backed
// loading of the JSON configuration document, environment overrides, and
// live reload triggered by SIGHUP.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/brinehollow/placewall/internal/model"
	"github.com/brinehollow/placewall/internal/plerrors"
)

// ColorEntry is one [R, G, B, id] palette row as it appears in the JSON
// configuration document.
type ColorEntry struct {
	R, G, B int
	ID      int
}

// AdministratorEntry mirrors one entry of the `administrators` array.
type AdministratorEntry struct {
	UUID       string
	Shutdown   bool
	Announce   bool
	ShadowBan  bool `mapstructure:"shadowban"`
	BanClick   bool `mapstructure:"banclick"`
	Cleanup    bool
}

// Config is every option named in SPEC_FULL.md §6's configuration table.
type Config struct {
	NewDBCanvasSize int `mapstructure:"new_db_canvas_size"`

	GetCanvasMaxRate       float64 `mapstructure:"getcanvas_max_rate"`
	GetCanvasPerSeconds    float64 `mapstructure:"getcanvas_per_seconds"`
	SetPixelMaxRate        float64 `mapstructure:"setpixel_max_rate"`
	SetPixelPerSeconds     float64 `mapstructure:"setpixel_per_seconds"`

	MaxUsersPerIP int `mapstructure:"max_users_per_ip"`

	CanvasSaveIntervalSec     int `mapstructure:"canvas_save_interval_sec"`
	WebsocketPingIntervalSec  int `mapstructure:"websocket_ping_interval_sec"`
	UsersSaveIntervalSec      int `mapstructure:"users_save_interval_sec"`
	KickInactiveAfterSec      int `mapstructure:"kick_inactive_after_sec"`
	MaxConcurrentUsers        int `mapstructure:"max_concurrent_users"`

	ListenURL string `mapstructure:"listen_url"`
	DBaseFile string `mapstructure:"dbase_file"`

	// Colors and Administrators are decoded by hand, not by mapstructure:
	// `colors` travels as an array of positional [R,G,B,id] tuples rather
	// than objects, which mapstructure has no field names to bind to.
	Colors         []ColorEntry         `mapstructure:"-"`
	Administrators []AdministratorEntry `mapstructure:"-"`
}

func defaults() *viper.Viper {
	v := viper.New()
	v.SetDefault("new_db_canvas_size", 512)
	v.SetDefault("getcanvas_max_rate", 2.0)
	v.SetDefault("getcanvas_per_seconds", 10.0)
	v.SetDefault("setpixel_max_rate", 5.0)
	v.SetDefault("setpixel_per_seconds", 10.0)
	v.SetDefault("max_users_per_ip", 8)
	v.SetDefault("canvas_save_interval_sec", 30)
	v.SetDefault("websocket_ping_interval_sec", 30)
	v.SetDefault("users_save_interval_sec", 60)
	v.SetDefault("kick_inactive_after_sec", 900)
	v.SetDefault("max_concurrent_users", 500)
	v.SetDefault("listen_url", ":8080")
	v.SetDefault("dbase_file", "placewall.sqlite")
	return v
}

// Load reads configFile if non-empty, merges PLACEWALL_<OPTION> environment
// overrides on top, and validates the result.
func Load(configFile string) (*Config, *viper.Viper, error) {
	v := defaults()
	v.SetEnvPrefix("PLACEWALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, plerrors.Wrapf(err, "reading config file %s", configFile)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, plerrors.Wrap(err, "decoding configuration")
	}

	colors, err := decodeColors(v.Get("colors"))
	if err != nil {
		return nil, err
	}
	cfg.Colors = colors

	admins, err := decodeAdministrators(v.Get("administrators"))
	if err != nil {
		return nil, err
	}
	cfg.Administrators = admins

	return &cfg, nil
}

// decodeColors parses the `colors` option's positional [R, G, B, id] tuples.
func decodeColors(raw any) ([]ColorEntry, error) {
	rows, ok := raw.([]any)
	if raw == nil {
		return nil, nil
	}
	if !ok {
		return nil, plerrors.New("colors must be an array of [R, G, B, id] tuples")
	}

	out := make([]ColorEntry, len(rows))
	for i, row := range rows {
		tuple, ok := row.([]any)
		if !ok || len(tuple) != 4 {
			return nil, plerrors.Newf("colors[%d] must be a 4-element [R, G, B, id] tuple", i)
		}
		vals := make([]int, 4)
		for j, v := range tuple {
			n, err := toInt(v)
			if err != nil {
				return nil, plerrors.Wrapf(err, "colors[%d][%d]", i, j)
			}
			vals[j] = n
		}
		out[i] = ColorEntry{R: vals[0], G: vals[1], B: vals[2], ID: vals[3]}
	}
	return out, nil
}

// decodeAdministrators parses the `administrators` option's array of
// {uuid, shutdown, announce, shadowban, banclick, cleanup} objects.
func decodeAdministrators(raw any) ([]AdministratorEntry, error) {
	rows, ok := raw.([]any)
	if raw == nil {
		return nil, nil
	}
	if !ok {
		return nil, plerrors.New("administrators must be an array of objects")
	}

	out := make([]AdministratorEntry, len(rows))
	for i, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			return nil, plerrors.Newf("administrators[%d] must be an object", i)
		}
		out[i] = AdministratorEntry{
			UUID:      fmt.Sprintf("%v", obj["uuid"]),
			Shutdown:  toBool(obj["shutdown"]),
			Announce:  toBool(obj["announce"]),
			ShadowBan: toBool(obj["shadowban"]),
			BanClick:  toBool(obj["banclick"]),
			Cleanup:   toBool(obj["cleanup"]),
		}
	}
	return out, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, plerrors.Newf("expected a number, got %T", v)
	}
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func validate(cfg *Config) error {
	if cfg.NewDBCanvasSize <= 0 {
		return plerrors.Newf("new_db_canvas_size must be positive, got %d", cfg.NewDBCanvasSize)
	}
	if cfg.MaxConcurrentUsers <= 0 {
		return plerrors.Newf("max_concurrent_users must be positive, got %d", cfg.MaxConcurrentUsers)
	}
	if cfg.ListenURL == "" {
		return plerrors.WithHint(
			plerrors.New("listen_url must not be empty"),
			"set listen_url in the config file, e.g. \":8080\", or export PLACEWALL_LISTEN_URL",
		)
	}
	if cfg.DBaseFile == "" {
		return plerrors.New("dbase_file must not be empty")
	}
	if len(cfg.Colors) == 0 {
		return plerrors.WithHint(
			plerrors.New("colors palette must not be empty"),
			"add a non-empty colors array of [R, G, B, id] tuples to the config file",
		)
	}
	return nil
}

// Palette converts the configured color rows into the model type the
// Canvas consumes.
func (c *Config) Palette() []model.PaletteEntry {
	out := make([]model.PaletteEntry, len(c.Colors))
	for i, col := range c.Colors {
		out[i] = model.PaletteEntry{ID: uint16(col.ID), R: uint8(col.R), G: uint8(col.G), B: uint8(col.B)}
	}
	return out
}

// AdminCapabilities converts the configured administrator rows into the
// model type the Admin Plane consumes.
func (c *Config) AdminCapabilities() []model.AdminCapabilities {
	out := make([]model.AdminCapabilities, len(c.Administrators))
	for i, a := range c.Administrators {
		out[i] = model.AdminCapabilities{
			UUID: a.UUID, Shutdown: a.Shutdown, Announce: a.Announce,
			ShadowBan: a.ShadowBan, BanClick: a.BanClick, Cleanup: a.Cleanup,
		}
	}
	return out
}

// Reload re-reads the underlying Viper instance's config file (called on
// SIGHUP) and returns a freshly validated Config without mutating the one
// currently in use — the caller swaps in the pieces that are safe to
// change at runtime (palette, administrators, rate constants) and leaves
// new_db_canvas_size inert, matching SPEC_FULL.md §4.8's config-reload
// worker contract.
func Reload(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		return nil, plerrors.Wrap(err, "re-reading config file")
	}
	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
