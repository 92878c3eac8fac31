package protocol

import (
	"context"
	"time"

	"github.com/brinehollow/placewall/internal/admin"
	"github.com/brinehollow/placewall/internal/canvas"
	"github.com/brinehollow/placewall/internal/plerrors"
	"github.com/brinehollow/placewall/internal/session"
	"github.com/brinehollow/placewall/internal/users"
)

// Broadcaster sends a frame to every live connection; used for
// broadcast-outcome replies and admin announcements/brush.
type Broadcaster interface {
	Broadcast(v any)
	Unicast(conn session.Conn, v any)
}

// Dispatcher wires the Canvas, Session Manager, and Admin Plane together
// and routes one request at a time, per SPEC_FULL.md §4.5.
type Dispatcher struct {
	Canvas      *canvas.Canvas
	Sessions    *session.Manager
	Admin       *admin.Plane
	Users       *users.Registry
	Broadcaster Broadcaster
	Now         func() time.Time
}

func (d *Dispatcher) adminUsers() *users.Registry { return d.Users }

// Outcome tags what the dispatcher should do with a handler's result,
// following the "Reply | Broadcast | None" variant SPEC_FULL.md §9
// recommends over a return-null convention.
type Outcome int

const (
	OutcomeReply Outcome = iota
	OutcomeBroadcast
	OutcomeNone
)

// Result is what a handler produces: either a unicast payload, a broadcast
// payload, or nothing (errors are returned separately via Go's error type).
type Result struct {
	Outcome Outcome
	Payload any
}

func reply(v any) Result    { return Result{Outcome: OutcomeReply, Payload: v} }
func broadcast(v any) Result { return Result{Outcome: OutcomeBroadcast, Payload: v} }
func none() Result           { return Result{Outcome: OutcomeNone} }

// Dispatch routes one JSON request and returns the result the caller (the
// wsserver connection loop) should act on.
func (d *Dispatcher) Dispatch(ctx context.Context, conn session.Conn, req Request) (Result, error) {
	switch req.RequestType {
	case "initialAuth":
		return d.handleInitialAuth(ctx, conn)
	case "auth":
		return d.handleAuth(ctx, conn, req.UserID)
	case "getCanvas":
		return d.handleGetCanvas(conn)
	case "getTileInfo":
		return d.handleGetTileInfo(conn, req.X, req.Y)
	case "getTileHistory":
		return d.handleGetTileHistory(conn, req.X, req.Y)
	case "postTile":
		return d.handlePostTile(ctx, conn, req.X, req.Y, req.ColorID)
	case "getColors":
		return d.handleGetColors(conn)
	case "setUsername":
		return d.handleSetUsername(conn, req.Name)
	case "admin_cmd":
		return d.handleAdminCmd(ctx, conn, req.Cmd)
	default:
		return none(), plerrors.ClientError(plerrors.KindValidation, "unknown requestType", nil)
	}
}

// requireSession resolves the caller's live session, producing the
// Authorization-kind error every authenticated handler shares.
func (d *Dispatcher) requireSession(conn session.Conn) (*session.Session, error) {
	s := d.Sessions.FindByConn(conn)
	if s == nil {
		return nil, plerrors.ClientError(plerrors.KindAuthorization, "not authenticated", nil)
	}
	return s, nil
}
