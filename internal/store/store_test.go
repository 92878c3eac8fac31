package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brinehollow/placewall/internal/model"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFillDefaultThenCountTiles(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	n, err := s.CountTiles(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	require.NoError(t, s.FillDefault(ctx, 4, 3))

	n, err = s.CountTiles(ctx)
	require.NoError(t, err)
	require.Equal(t, 16, n)
}

func TestUpdateTilesBatch_RoundTrip(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.FillDefault(ctx, 4, 3))

	deltas := []model.Delta{
		{X: 1, Y: 2, Tile: model.Tile{ColorID: 5, LastModifier: "user-1", PlaceTime: 100}},
	}
	require.NoError(t, s.UpdateTilesBatch(ctx, deltas))

	tiles, err := s.LoadAllTiles(ctx)
	require.NoError(t, err)
	got := tiles[[2]int{1, 2}]
	require.Equal(t, uint8(5), got.ColorID)
	require.Equal(t, "user-1", got.LastModifier)
}

func TestInsertLoadUser_RoundTrip(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	u := model.NewUser("uuid-1", time.Unix(1000, 0))
	u.Name = "alice"
	require.NoError(t, s.InsertUser(ctx, u))

	loaded, err := s.LoadUser(ctx, "uuid-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, u.Name, loaded.Name)
	require.Equal(t, u.RemainingTiles, loaded.RemainingTiles)
	require.Equal(t, u.MaxTiles, loaded.MaxTiles)
	require.Equal(t, u.LastConnected.Unix(), loaded.LastConnected.Unix())
}

func TestLoadUser_MissingReturnsNil(t *testing.T) {
	s := openMemory(t)
	loaded, err := s.LoadUser(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestUpdateUsersBatch(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	u1 := model.NewUser("u1", time.Now())
	u2 := model.NewUser("u2", time.Now())
	require.NoError(t, s.InsertUser(ctx, u1))
	require.NoError(t, s.InsertUser(ctx, u2))

	u1.RemainingTiles = 10
	u2.RemainingTiles = 20
	require.NoError(t, s.UpdateUsersBatch(ctx, []*model.User{u1, u2}))

	got1, _ := s.LoadUser(ctx, "u1")
	got2, _ := s.LoadUser(ctx, "u2")
	require.Equal(t, 10, got1.RemainingTiles)
	require.Equal(t, 20, got2.RemainingTiles)
}

func TestHostRoundTripAndMonotonicAccounts(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	h := &model.Host{Address: "203.0.113.5", TotalAccounts: 1}
	require.NoError(t, s.InsertHost(ctx, h))

	loaded, err := s.LoadHost(ctx, "203.0.113.5")
	require.NoError(t, err)
	require.Equal(t, 1, loaded.TotalAccounts)

	loaded.TotalAccounts++
	require.NoError(t, s.UpdateHost(ctx, loaded))

	reloaded, err := s.LoadHost(ctx, "203.0.113.5")
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.TotalAccounts)
}

func TestBackupTo(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.FillDefault(ctx, 2, 3))

	dst := t.TempDir() + "/backup.sqlite"
	require.NoError(t, s.BackupTo(ctx, dst))
}
