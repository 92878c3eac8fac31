package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brinehollow/placewall/internal/model"
)

func TestAllow_AdmitsUpToBurstThenDenies(t *testing.T) {
	state := Init(5, 10, time.Unix(0, 0))
	l := New(&state)
	fixed := time.Unix(0, 0)
	l.now = func() time.Time { return fixed }

	admitted := 0
	for i := 0; i < 10; i++ {
		if l.Allow() {
			admitted++
		}
	}
	assert.Equal(t, 5, admitted, "only the initial burst of 5 should admit with no elapsed time")
}

func TestAllow_RefillsOverTime(t *testing.T) {
	state := Init(5, 10, time.Unix(0, 0))
	l := New(&state)
	cur := time.Unix(0, 0)
	l.now = func() time.Time { return cur }

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow())
	}
	require.False(t, l.Allow())

	// Half the window elapses: half the max rate should refill.
	cur = cur.Add(5 * time.Second)
	assert.True(t, l.Allow(), "allowance should have refilled enough for one admission")
}

func TestAllow_MutatesStateEvenOnDenial(t *testing.T) {
	state := Init(1, 10, time.Unix(0, 0))
	l := New(&state)
	before := state.LastEventMicros

	require.True(t, l.Allow())
	require.False(t, l.Allow())

	assert.NotEqual(t, before, state.LastEventMicros, "last-event timestamp must update even on denial")
}

func TestConfigure_ClampsAllowanceToNewMax(t *testing.T) {
	state := Init(10, 10, time.Unix(0, 0))
	l := New(&state)

	l.Configure(3, 10)
	assert.Equal(t, float64(3), state.Allowance)
}

func TestInit_PersistsVerbatim(t *testing.T) {
	u := model.NewUser("u1", time.Now())
	u.TileLimiter = Init(5, 10, time.Now())
	assert.Equal(t, 5.0, u.TileLimiter.Allowance)
}
