// Package users is the User Registry from SPEC_FULL.md §4.4: load/persist
// model.User rows and record the socket of each currently-connected user.
// This is distinct from the Session Manager (internal/session), which owns
// attach/detach lifecycle and per-connection transport state; the registry
// only owns the durable economy fields and the uuid->socket lookup table.
package users

import (
	"context"
	"sync"
	"time"

	"github.com/brinehollow/placewall/internal/model"
	"github.com/brinehollow/placewall/internal/plerrors"
	"github.com/brinehollow/placewall/internal/ratelimit"
	"github.com/brinehollow/placewall/internal/store"
)

// Registry caches every user seen this process lifetime, keyed by uuid, and
// tracks which uuids currently have a live socket attached.
type Registry struct {
	mu           sync.Mutex
	s            *store.Store
	byUUID       map[string]*model.User
	socketByUUID map[string]any // opaque connection handle, set by session manager
}

func New(s *store.Store) *Registry {
	return &Registry{
		s:            s,
		byUUID:       make(map[string]*model.User),
		socketByUUID: make(map[string]any),
	}
}

// LoadOrCreate returns the cached user for uuid, loading from the store on
// first sight and falling back to a fresh default-economy user when none
// exists yet (a brand-new client-generated uuid).
func (r *Registry) LoadOrCreate(ctx context.Context, uuid string, now time.Time) (*model.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byUUID[uuid]; ok {
		return u, false, nil
	}

	u, err := r.s.LoadUser(ctx, uuid)
	if err != nil {
		return nil, false, plerrors.Wrap(err, "loading user")
	}
	if u != nil {
		r.byUUID[uuid] = u
		return u, false, nil
	}

	fresh := model.NewUser(uuid, now)
	r.byUUID[uuid] = fresh
	return fresh, true, nil
}

// Load returns the existing user for uuid, or (nil, nil) if no account has
// ever been created with that identifier — unlike LoadOrCreate, it never
// fabricates a fresh account, matching the auth handler's precondition that
// the uuid must already exist (SPEC_FULL.md §4.5).
func (r *Registry) Load(ctx context.Context, uuid string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byUUID[uuid]; ok {
		return u, nil
	}

	u, err := r.s.LoadUser(ctx, uuid)
	if err != nil {
		return nil, plerrors.Wrap(err, "loading user")
	}
	if u == nil {
		return nil, nil
	}
	r.byUUID[uuid] = u
	return u, nil
}

// Update persists a single user's current fields immediately, used on
// detach so a disconnecting user's state survives a crash before the next
// checkpoint.
func (r *Registry) Update(ctx context.Context, u *model.User) error {
	return plerrors.Wrap(r.s.UpdateUser(ctx, u), "updating user")
}

// Get returns the cached user, or nil if uuid is unknown.
func (r *Registry) Get(uuid string) *model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byUUID[uuid]
}

// Persist writes a single user immediately, used right after registration
// so a freshly created account survives a crash before the next checkpoint.
func (r *Registry) Persist(ctx context.Context, u *model.User) error {
	if err := r.s.InsertUser(ctx, u); err != nil {
		return plerrors.Wrap(err, "inserting user")
	}
	r.mu.Lock()
	r.byUUID[u.UUID] = u
	r.mu.Unlock()
	return nil
}

// AttachSocket records that uuid now owns socket, for SocketOf lookups.
func (r *Registry) AttachSocket(uuid string, socket any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.socketByUUID[uuid] = socket
}

// DetachSocket clears the socket association on disconnect.
func (r *Registry) DetachSocket(uuid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.socketByUUID, uuid)
}

// SocketOf returns the live socket for uuid, or nil if not connected.
func (r *Registry) SocketOf(uuid string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.socketByUUID[uuid]
}

// Snapshot returns every cached user, for the periodic checkpoint worker.
func (r *Registry) Snapshot() []*model.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.User, 0, len(r.byUUID))
	for _, u := range r.byUUID {
		out = append(out, u)
	}
	return out
}

// CheckpointAll flushes every cached user to the store in one transaction
// (SPEC_FULL.md §4.8's user-checkpoint worker).
func (r *Registry) CheckpointAll(ctx context.Context) error {
	return plerrors.Wrap(r.s.UpdateUsersBatch(ctx, r.Snapshot()), "checkpointing users")
}

// ReauthAccrue applies the corrected offline-accrual formula on reconnect,
// updating u in place and stamping LastConnected with now, per
// SPEC_FULL.md §3: remaining := min(max, remaining + tiles_to_add).
func ReauthAccrue(u *model.User, now time.Time) {
	elapsed := now.Sub(u.LastConnected).Seconds()
	if elapsed > 0 {
		u.AccrueOffline(elapsed)
	}
	u.LastConnected = now
}

// NewLimiters builds the pair of token-bucket limiters a freshly attached
// user needs, seeded from their persisted state.
func NewLimiters(u *model.User) (canvasLimiter, tileLimiter *ratelimit.Limiter) {
	return ratelimit.New(&u.CanvasLimiter), ratelimit.New(&u.TileLimiter)
}
