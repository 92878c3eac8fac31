package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brinehollow/placewall/internal/hostreg"
	"github.com/brinehollow/placewall/internal/model"
	"github.com/brinehollow/placewall/internal/plerrors"
	"github.com/brinehollow/placewall/internal/ratelimit"
	"github.com/brinehollow/placewall/internal/users"
)

// Clock lets tests control time instead of wall-clock `time.Now`.
type Clock func() time.Time

// RateLimits carries the two admission classes' token-bucket parameters
// (SPEC_FULL.md §4.1's getcanvas/setpixel rates) from *config.Config into
// the Manager, which applies them to every user it attaches.
type RateLimits struct {
	CanvasMaxRate    float64
	CanvasPerSeconds float64
	TileMaxRate      float64
	TilePerSeconds   float64
}

// Manager owns the live session table. SPEC_FULL.md §5 models this as
// exclusively main-event-loop state; this implementation instead protects
// it with a mutex so regen timers (goroutines) can safely fire concurrently
// with request handlers, which is the idiomatic Go equivalent of a
// single-threaded cooperative loop.
type Manager struct {
	mu       sync.Mutex
	byUUID   map[string]*Session
	byConn   map[Conn]*Session
	users    *users.Registry
	hosts    *hostreg.Registry
	notifier Notifier
	now      Clock
	limits   RateLimits

	maxUsersPerIP      int
	maxConcurrentUsers int
}

func New(u *users.Registry, h *hostreg.Registry, n Notifier, maxUsersPerIP, maxConcurrentUsers int, limits RateLimits) *Manager {
	return &Manager{
		byUUID:             make(map[string]*Session),
		byConn:             make(map[Conn]*Session),
		users:              u,
		hosts:              h,
		notifier:           n,
		now:                time.Now,
		limits:             limits,
		maxUsersPerIP:      maxUsersPerIP,
		maxConcurrentUsers: maxConcurrentUsers,
	}
}

// SetRateLimits updates the limits applied to newly attached users and
// reapplies them to every live session's limiters without disturbing their
// accrued allowance, so a SIGHUP config reload takes effect immediately.
func (m *Manager) SetRateLimits(limits RateLimits) {
	m.mu.Lock()
	m.limits = limits
	sessions := make([]*Session, 0, len(m.byUUID))
	for _, s := range m.byUUID {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.CanvasLimiter.Configure(limits.CanvasMaxRate, limits.CanvasPerSeconds)
		s.TileLimiter.Configure(limits.TileMaxRate, limits.TilePerSeconds)
	}
}

// SetClock overrides the time source, for deterministic tests.
func (m *Manager) SetClock(c Clock) { m.now = c }

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byUUID)
}

// FindByUUID returns the live session for uuid, or nil.
func (m *Manager) FindByUUID(uid string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byUUID[uid]
}

// FindByConn returns the live session owning conn, or nil.
func (m *Manager) FindByConn(c Conn) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byConn[c]
}

// AttachNew implements `attach_new`: mints a UUID, a default-economy user,
// persists it, registers the host, and starts the regen timer.
func (m *Manager) AttachNew(ctx context.Context, conn Conn, hostAddress string) (*Session, error) {
	count, err := m.hosts.AccountCount(ctx, hostAddress)
	if err != nil {
		return nil, err
	}
	if count >= m.maxUsersPerIP {
		return nil, plerrors.ClientError(plerrors.KindAuthorization, "account limit reached for this address", nil)
	}

	now := m.now()
	u := model.NewUser(uuid.NewString(), now)
	u.CanvasLimiter = ratelimit.Init(m.limits.CanvasMaxRate, m.limits.CanvasPerSeconds, now)
	u.TileLimiter = ratelimit.Init(m.limits.TileMaxRate, m.limits.TilePerSeconds, now)
	if err := m.users.Persist(ctx, u); err != nil {
		return nil, err
	}
	if err := m.hosts.RecordNewAccount(ctx, hostAddress); err != nil {
		return nil, err
	}

	return m.register(conn, u), nil
}

// AttachExisting implements `attach_existing`: loads the stored user,
// evicts any prior live session for the same uuid, accrues offline tiles,
// and starts the regen timer.
func (m *Manager) AttachExisting(ctx context.Context, conn Conn, uid string) (*Session, error) {
	u, err := m.users.Load(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, plerrors.ClientError(plerrors.KindAuthorization, "unknown user", nil)
	}

	if prior := m.FindByUUID(uid); prior != nil {
		m.Kick(prior, "new tab", "OK")
	}

	now := m.now()
	users.ReauthAccrue(u, now)
	ratelimit.New(&u.CanvasLimiter).Configure(m.limits.CanvasMaxRate, m.limits.CanvasPerSeconds)
	ratelimit.New(&u.TileLimiter).Configure(m.limits.TileMaxRate, m.limits.TilePerSeconds)

	return m.register(conn, u), nil
}

// register finalizes attach: wires the socket, starts the regen timer,
// enforces the concurrent-session cap, and announces the new count.
func (m *Manager) register(conn Conn, u *model.User) *Session {
	s := newSession(conn, u)

	m.mu.Lock()
	m.byUUID[u.UUID] = s
	m.byConn[conn] = s
	m.users.AttachSocket(u.UUID, conn)
	count := len(m.byUUID)
	m.mu.Unlock()

	m.startRegenTimer(s)
	m.notifier.UserCountChanged(count)

	if count > m.maxConcurrentUsers {
		m.Kick(s, "server full", "OK")
	}
	return s
}

// Detach implements `detach`: stamps last_connected, persists, cancels the
// regen timer, and removes the session.
func (m *Manager) Detach(ctx context.Context, conn Conn) error {
	m.mu.Lock()
	s, ok := m.byConn[conn]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.byConn, conn)
	// A session evicted by a newer auth for the same uuid no longer owns
	// the uuid entry; leave the newer session in place.
	current := m.byUUID[s.User.UUID] == s
	if current {
		delete(m.byUUID, s.User.UUID)
	}
	count := len(m.byUUID)
	m.mu.Unlock()

	m.stopRegenTimer(s)
	if current {
		m.users.DetachSocket(s.User.UUID)
	}

	s.User.LastConnected = m.now()
	err := m.users.Update(ctx, s.User)

	m.notifier.UserCountChanged(count)
	return err
}

// Kick implements the kick protocol: unicast a `kicked` message, then
// detach. The caller's Detach is driven by the actual connection close
// that follows, consistent with SPEC_FULL.md §4.4's "unicast then detach"
// wording — closing the socket is what triggers the real detach path.
func (m *Manager) Kick(s *Session, reason, buttonLabel string) {
	m.notifier.Kicked(s.Conn, reason, buttonLabel)
	_ = s.Conn.Close()
}

// Touch stamps last_event for the given session, used by every handler
// that successfully processes a request (inactivity reaper input).
func (m *Manager) Touch(s *Session) {
	s.touch(m.now())
}

// Sessions returns a snapshot slice of every live session, for broadcast
// and sweep operations.
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.byUUID))
	for _, s := range m.byUUID {
		out = append(out, s)
	}
	return out
}
