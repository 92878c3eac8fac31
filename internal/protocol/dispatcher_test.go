package protocol

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brinehollow/placewall/internal/admin"
	"github.com/brinehollow/placewall/internal/canvas"
	"github.com/brinehollow/placewall/internal/hostreg"
	"github.com/brinehollow/placewall/internal/model"
	"github.com/brinehollow/placewall/internal/session"
	"github.com/brinehollow/placewall/internal/store"
	"github.com/brinehollow/placewall/internal/users"
)

type fakeConn struct{ id string }

func (f *fakeConn) RemoteAddr() string { return f.id }
func (f *fakeConn) Close() error       { return nil }

type fakeBroadcaster struct {
	broadcasts []any
	unicasts   []any
}

func (b *fakeBroadcaster) Broadcast(v any)                     { b.broadcasts = append(b.broadcasts, v) }
func (b *fakeBroadcaster) Unicast(conn session.Conn, v any)    { b.unicasts = append(b.unicasts, v) }

type noopSessionNotifier struct{}

func (noopSessionNotifier) Kicked(session.Conn, string, string)  {}
func (noopSessionNotifier) TileCountIncrement(session.Conn, int) {}
func (noopSessionNotifier) UserCountChanged(int)                 {}

type noopAdminNotifier struct{}

func (noopAdminNotifier) Announcement(string)                 {}
func (noopAdminNotifier) TileUpdate(int, int, model.Tile)     {}
func (noopAdminNotifier) Shutdown()                           {}

func newTestDispatcher(t *testing.T, admins []model.AdminCapabilities) (*Dispatcher, *fakeBroadcaster) {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	palette := canvas.Palette{{ID: 0}, {ID: 1}, {ID: 2}, {ID: 3}}
	c, err := canvas.Load(context.Background(), s, 4, palette, 0)
	require.NoError(t, err)

	u := users.New(s)
	sm := session.New(u, hostreg.New(s), noopSessionNotifier{}, 100, 100, session.RateLimits{
		CanvasMaxRate: 1000, CanvasPerSeconds: 1, TileMaxRate: 1000, TilePerSeconds: 1,
	})
	a := admin.New(c, sm, noopAdminNotifier{}, admins)
	b := &fakeBroadcaster{}

	return &Dispatcher{
		Canvas: c, Sessions: sm, Admin: a, Users: u, Broadcaster: b,
		Now: func() time.Time { return time.Unix(1000, 0) },
	}, b
}

func TestDispatch_InitialAuthThenPostTile(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	ctx := context.Background()
	conn := &fakeConn{id: "c1"}

	res, err := d.Dispatch(ctx, conn, Request{RequestType: "initialAuth"})
	require.NoError(t, err)
	require.Equal(t, OutcomeReply, res.Outcome)
	auth := res.Payload.(AuthSuccessfulResponse)
	require.Equal(t, 60, auth.RemainingTiles)

	res, err = d.Dispatch(ctx, conn, Request{RequestType: "postTile", X: 1, Y: 1, ColorID: "2"})
	require.NoError(t, err)
	require.Equal(t, OutcomeBroadcast, res.Outcome)
	update := res.Payload.(TileUpdateResponse)
	require.Equal(t, uint8(2), update.ColorID)

	require.Equal(t, uint8(2), d.Canvas.TileAt(1, 1).ColorID)
}

func TestDispatch_PostTileRejectsUnauthenticated(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	_, err := d.Dispatch(context.Background(), &fakeConn{id: "c1"}, Request{RequestType: "postTile", X: 1, Y: 1, ColorID: "1"})
	require.Error(t, err)
}

func TestDispatch_PostTileRejectsQuotaExhausted(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	ctx := context.Background()
	conn := &fakeConn{id: "c1"}

	_, err := d.Dispatch(ctx, conn, Request{RequestType: "initialAuth"})
	require.NoError(t, err)
	s := d.Sessions.FindByConn(conn)
	s.User.RemainingTiles = 0

	_, err = d.Dispatch(ctx, conn, Request{RequestType: "postTile", X: 0, Y: 0, ColorID: "1"})
	require.Error(t, err)
}

func TestDispatch_ShadowBannedPlacementIsPrivateEcho(t *testing.T) {
	d, b := newTestDispatcher(t, nil)
	ctx := context.Background()
	conn := &fakeConn{id: "c1"}

	_, err := d.Dispatch(ctx, conn, Request{RequestType: "initialAuth"})
	require.NoError(t, err)
	s := d.Sessions.FindByConn(conn)
	s.User.IsShadowBanned = true

	res, err := d.Dispatch(ctx, conn, Request{RequestType: "postTile", X: 2, Y: 2, ColorID: "1"})
	require.NoError(t, err)
	require.Equal(t, OutcomeNone, res.Outcome)
	require.Len(t, b.unicasts, 1)
	require.Empty(t, b.broadcasts)
}

func TestDispatch_SetUsernameRejectsOversizedName(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	ctx := context.Background()
	conn := &fakeConn{id: "c1"}
	_, err := d.Dispatch(ctx, conn, Request{RequestType: "initialAuth"})
	require.NoError(t, err)

	longName := make([]byte, 65)
	_, err = d.Dispatch(ctx, conn, Request{RequestType: "setUsername", Name: string(longName)})
	require.Error(t, err)
}

func TestDispatch_AdminCmdRejectsNonAdmin(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	ctx := context.Background()
	conn := &fakeConn{id: "c1"}
	_, err := d.Dispatch(ctx, conn, Request{RequestType: "initialAuth"})
	require.NoError(t, err)

	_, err = d.Dispatch(ctx, conn, Request{RequestType: "admin_cmd", Cmd: []byte(`{"action":"announce","message":"hi"}`)})
	require.Error(t, err)
}

func TestDispatchBinary_PostTileBroadcastsFrame(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	ctx := context.Background()
	conn := &fakeConn{id: "c1"}
	_, err := d.Dispatch(ctx, conn, Request{RequestType: "initialAuth"})
	require.NoError(t, err)

	res, err := d.DispatchBinary(conn, BinaryRequest{Type: ReqPostTile, X: 0, Y: 0, ColorIDOrLen: 1})
	require.NoError(t, err)
	require.Equal(t, OutcomeBroadcast, res.Outcome)
	require.Equal(t, ResTileUpdate, res.Frame[0])
}
