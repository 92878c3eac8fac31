// Package model holds the plain data types shared across placewall's
// storage, canvas, session, and protocol layers.
package model

import "time"

// Tile is one cell of the canvas.
type Tile struct {
	ColorID      uint8
	PlaceTime    int64 // unix seconds
	LastModifier string // 36-char user uuid
}

// PaletteEntry is one allowed color, indexed by ID.
type PaletteEntry struct {
	ID    uint16
	R, G, B uint8
}

// RateLimiterState is the persisted token-bucket state for one admission
// class (canvas-fetch or tile-place). Allowance is stored verbatim so a
// reconnecting client can't reset its quota by dropping the socket.
type RateLimiterState struct {
	LastEventMicros int64
	Allowance       float64
	MaxRate         float64
	PerSeconds      float64
}

// User is one account. The Socket/live fields only have meaning while a
// session is open; the persisted row carries everything else.
type User struct {
	UUID             string
	Name             string
	HasSetUsername   bool
	IsAuthenticated  bool
	IsShadowBanned   bool

	CanvasLimiter RateLimiterState
	TileLimiter   RateLimiterState

	RemainingTiles    int
	MaxTiles          int
	TileRegenSeconds  int
	TotalPlaced       int64
	Level             int
	ProgressInLevel   int
	TilesToNextLevel  int

	LastConnected time.Time
	LastEvent     time.Time
}

// Host is a remote source address observed creating accounts.
type Host struct {
	Address       string
	TotalAccounts int
}

// AdminCapabilities are the independent privileged actions one administrator
// may be granted.
type AdminCapabilities struct {
	UUID       string
	Shutdown   bool
	Announce   bool
	ShadowBan  bool
	BanClick   bool
	Cleanup    bool // brush
}

// Delta is one tile placement awaiting persistence.
type Delta struct {
	X, Y int
	Tile Tile
}

// Default economy for a brand-new account, per SPEC_FULL.md §3/§4.4.
const (
	DefaultRemainingTiles   = 60
	DefaultMaxTiles         = 250
	DefaultRegenSeconds     = 10
	DefaultLevel            = 1
	DefaultTilesToNextLevel = 100
	MinRegenSeconds         = 10
)

// NewUser builds the default economy for a first-time account.
func NewUser(uuid string, now time.Time) *User {
	return &User{
		UUID:             uuid,
		RemainingTiles:   DefaultRemainingTiles,
		MaxTiles:         DefaultMaxTiles,
		TileRegenSeconds: DefaultRegenSeconds,
		Level:            DefaultLevel,
		TilesToNextLevel: DefaultTilesToNextLevel,
		LastConnected:    now,
		LastEvent:        now,
	}
}

// LevelUp applies the progression formula from SPEC_FULL.md §4.7.
func (u *User) LevelUp() {
	u.Level++
	u.MaxTiles += 100
	u.TilesToNextLevel += 150
	u.ProgressInLevel = 0
	u.RemainingTiles = u.MaxTiles
	if u.TileRegenSeconds > MinRegenSeconds {
		u.TileRegenSeconds--
	}
}

// AccrueOffline applies the corrected re-auth accrual formula: SPEC_FULL.md
// §3 treats the source's overshoot-prone version as buggy and specifies
// remaining := min(max, remaining + tiles_to_add).
func (u *User) AccrueOffline(elapsedSeconds float64) {
	if u.TileRegenSeconds <= 0 {
		return
	}
	tilesToAdd := int(elapsedSeconds / float64(u.TileRegenSeconds))
	if tilesToAdd <= 0 {
		return
	}
	u.RemainingTiles += tilesToAdd
	if u.RemainingTiles > u.MaxTiles {
		u.RemainingTiles = u.MaxTiles
	}
}
