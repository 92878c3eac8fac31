package session

import "time"

// startRegenTimer schedules the per-user regen tick described in
// SPEC_FULL.md §4.4: fires every `regen_seconds`, re-reading that value on
// every fire so a level-up takes effect immediately.
func (m *Manager) startRegenTimer(s *Session) {
	m.scheduleRegenTick(s)
}

func (m *Manager) scheduleRegenTick(s *Session) {
	period := time.Duration(s.User.TileRegenSeconds) * time.Second
	if period <= 0 {
		period = time.Second
	}
	s.regenTimer = time.AfterFunc(period, func() { m.fireRegenTick(s) })
}

// fireRegenTick re-checks liveness under the lock before touching the
// user: a tick can race a concurrent Detach that already removed the
// session but hadn't yet reached stopRegenTimer.
func (m *Manager) fireRegenTick(s *Session) {
	m.mu.Lock()
	stillLive := m.byUUID[s.User.UUID] == s
	m.mu.Unlock()
	if !stillLive {
		return
	}

	if s.User.RemainingTiles < s.User.MaxTiles {
		s.User.RemainingTiles++
		m.notifier.TileCountIncrement(s.Conn, 1)
	}

	m.scheduleRegenTick(s)
}

func (m *Manager) stopRegenTimer(s *Session) {
	if s.regenTimer != nil {
		s.regenTimer.Stop()
	}
}
