package session

import "time"

// SweepInactive implements the inactivity reaper coupled to the user
// checkpoint worker (SPEC_FULL.md §4.8): kicks any session whose last_event
// is older than kickAfter.
func (m *Manager) SweepInactive(kickAfter time.Duration) {
	now := m.now()
	for _, s := range m.Sessions() {
		if now.Sub(s.User.LastEvent) > kickAfter {
			m.Kick(s, "inactive", "OK")
		}
	}
}
