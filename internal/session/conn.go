// Package session is the Session Manager from SPEC_FULL.md §4.4: the live,
// in-memory table of connected users, their regen timers, and kick policy.
// It is deliberately independent of the transport package (internal/wsserver)
// and the wire format (internal/protocol) — both depend on Conn/Notifier,
// not the other way around.
package session

// Conn is the minimal transport handle the Session Manager needs. The
// wsserver package's gorilla/websocket wrapper implements this; tests use a
// trivial fake.
type Conn interface {
	RemoteAddr() string
	Close() error
}

// Notifier delivers the unicast/broadcast side-effects the Session Manager
// triggers but does not itself encode — keeping this package free of
// protocol framing concerns.
type Notifier interface {
	Kicked(conn Conn, reason, buttonLabel string)
	TileCountIncrement(conn Conn, amount int)
	UserCountChanged(count int)
}
