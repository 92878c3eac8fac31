package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brinehollow/placewall/internal/store"
)

func TestLoadOrCreate_NewUserGetsDefaultEconomy(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	r := New(s)
	u, created, err := r.LoadOrCreate(context.Background(), "uuid-1", time.Unix(1000, 0))
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, 60, u.RemainingTiles)

	again, created2, err := r.LoadOrCreate(context.Background(), "uuid-1", time.Unix(2000, 0))
	require.NoError(t, err)
	require.False(t, created2)
	require.Same(t, u, again)
}

func TestLoadOrCreate_RehydratesFromStore(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	r1 := New(s)
	u, _, err := r1.LoadOrCreate(context.Background(), "uuid-2", time.Unix(1000, 0))
	require.NoError(t, err)
	u.RemainingTiles = 5
	require.NoError(t, r1.Persist(context.Background(), u))

	r2 := New(s)
	loaded, created, err := r2.LoadOrCreate(context.Background(), "uuid-2", time.Unix(2000, 0))
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, 5, loaded.RemainingTiles)
}

func TestSocketAssociation(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	r := New(s)
	require.Nil(t, r.SocketOf("uuid-3"))

	r.AttachSocket("uuid-3", "fake-conn")
	require.Equal(t, "fake-conn", r.SocketOf("uuid-3"))

	r.DetachSocket("uuid-3")
	require.Nil(t, r.SocketOf("uuid-3"))
}

func TestReauthAccrue_AddsTilesForElapsedTime(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	r := New(s)
	u, _, err := r.LoadOrCreate(context.Background(), "uuid-4", time.Unix(1000, 0))
	require.NoError(t, err)
	u.RemainingTiles = 0
	u.TileRegenSeconds = 10

	ReauthAccrue(u, time.Unix(1000+55, 0))
	require.Equal(t, 5, u.RemainingTiles)
}

func TestCheckpointAll_PersistsEveryCachedUser(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	r := New(s)
	u1, _, err := r.LoadOrCreate(context.Background(), "uuid-5", time.Unix(1000, 0))
	require.NoError(t, err)
	require.NoError(t, r.Persist(context.Background(), u1))
	u1.RemainingTiles = 42

	require.NoError(t, r.CheckpointAll(context.Background()))

	reloaded, err := s.LoadUser(context.Background(), "uuid-5")
	require.NoError(t, err)
	require.Equal(t, 42, reloaded.RemainingTiles)
}
