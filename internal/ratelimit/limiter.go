// Package ratelimit implements the per-user token-bucket admission control
// described in SPEC_FULL.md §4.1.
//
// This is hand-rolled rather than built on golang.org/x/time/rate because
// the bucket's current allowance must be read and overwritten as plain
// fields on a persisted model.User row (see DESIGN.md for the full
// rationale) — x/time/rate keeps its token count private and offers no
// supported way to snapshot/restore it across a process restart.
package ratelimit

import (
	"time"

	"github.com/brinehollow/placewall/internal/model"
)

// Limiter wraps a persisted model.RateLimiterState and applies the refill
// math on every admission check.
type Limiter struct {
	state *model.RateLimiterState
	now   func() time.Time
}

// New wraps state for admission checks. state is typically a pointer into
// a model.User so mutations are visible to whoever persists the user later.
func New(state *model.RateLimiterState) *Limiter {
	return &Limiter{state: state, now: time.Now}
}

// Configure resets the limiter's rate/window and is re-invoked on every
// config reload so in-flight buckets pick up new limits. The current
// allowance is kept, except that it is clamped down to the new maxRate.
func (l *Limiter) Configure(maxRate, perSeconds float64) {
	l.state.MaxRate = maxRate
	l.state.PerSeconds = perSeconds
	if l.state.Allowance > maxRate {
		l.state.Allowance = maxRate
	}
}

// Init sets a brand-new limiter's allowance to a full bucket.
func Init(maxRate, perSeconds float64, now time.Time) model.RateLimiterState {
	return model.RateLimiterState{
		LastEventMicros: now.UnixMicro(),
		Allowance:       maxRate,
		MaxRate:         maxRate,
		PerSeconds:      perSeconds,
	}
}

// Allow refills the bucket for elapsed time since the last check, then
// admits if at least one token is available. Both last-event and allowance
// mutate on every call, admitted or not — SPEC_FULL.md §4.1.
func (l *Limiter) Allow() bool {
	now := l.now()
	nowMicros := now.UnixMicro()
	elapsedSeconds := float64(nowMicros-l.state.LastEventMicros) / 1e6
	l.state.LastEventMicros = nowMicros

	if l.state.PerSeconds > 0 {
		l.state.Allowance += elapsedSeconds * l.state.MaxRate / l.state.PerSeconds
		if l.state.Allowance > l.state.MaxRate {
			l.state.Allowance = l.state.MaxRate
		}
	}

	if l.state.Allowance < 1 {
		return false
	}
	l.state.Allowance--
	return true
}
