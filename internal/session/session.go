package session

import (
	"time"

	"github.com/brinehollow/placewall/internal/model"
	"github.com/brinehollow/placewall/internal/ratelimit"
	"github.com/brinehollow/placewall/internal/users"
)

// Session ties one live Conn to its user record and token-bucket limiters.
// Every field is only ever touched while holding Manager.mu.
type Session struct {
	Conn          Conn
	User          *model.User
	CanvasLimiter *ratelimit.Limiter
	TileLimiter   *ratelimit.Limiter

	regenTimer *time.Timer
}

func newSession(conn Conn, u *model.User) *Session {
	canvasLimiter, tileLimiter := users.NewLimiters(u)
	return &Session{
		Conn:          conn,
		User:          u,
		CanvasLimiter: canvasLimiter,
		TileLimiter:   tileLimiter,
	}
}

// touch stamps LastEvent, used by the inactivity reaper.
func (s *Session) touch(now time.Time) {
	s.User.LastEvent = now
}
