package hostreg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brinehollow/placewall/internal/store"
)

func TestCanonicalAddress(t *testing.T) {
	require.Equal(t, "203.0.113.5", CanonicalAddress("203.0.113.5:54321", ""))
	require.Equal(t, "198.51.100.9", CanonicalAddress("10.0.0.1:8080", "198.51.100.9, 10.0.0.1"))
	require.Equal(t, "not-a-host-port", CanonicalAddress("not-a-host-port", ""))
}

func TestRecordNewAccount_InsertsThenUpdates(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	r := New(s)
	ctx := context.Background()

	require.NoError(t, r.RecordNewAccount(ctx, "198.51.100.9"))
	n, err := r.AccountCount(ctx, "198.51.100.9")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, r.RecordNewAccount(ctx, "198.51.100.9"))
	n, err = r.AccountCount(ctx, "198.51.100.9")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestAccountCount_UnknownHostIsZero(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	r := New(s)
	n, err := r.AccountCount(context.Background(), "203.0.113.77")
	require.NoError(t, err)
	require.Equal(t, 0, n)
}
