package wsserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brinehollow/placewall/internal/admin"
	"github.com/brinehollow/placewall/internal/canvas"
	"github.com/brinehollow/placewall/internal/config"
	"github.com/brinehollow/placewall/internal/hostreg"
	"github.com/brinehollow/placewall/internal/logging"
	"github.com/brinehollow/placewall/internal/model"
	"github.com/brinehollow/placewall/internal/plerrors"
	"github.com/brinehollow/placewall/internal/protocol"
	"github.com/brinehollow/placewall/internal/session"
	"github.com/brinehollow/placewall/internal/store"
	"github.com/brinehollow/placewall/internal/users"
)

// Server is the gorilla/websocket hub: it owns every live connection, the
// HTTP upgrade endpoint, and the background workers (SPEC_FULL.md §4.8)
// that flush, checkpoint, reload, and back up the rest of the system.
type Server struct {
	cfg      *config.Config
	upgrader websocket.Upgrader

	store    *store.Store
	canvas   *canvas.Canvas
	hosts    *hostreg.Registry
	users    *users.Registry
	sessions *session.Manager
	admin    *admin.Plane
	dispatch *protocol.Dispatcher

	mu    sync.Mutex
	conns map[*conn]struct{}

	shutdown chan struct{}
	once     sync.Once
}

// defaultFillColorID is the palette index a brand-new canvas is bulk-filled
// with (SPEC_FULL.md §4.2).
const defaultFillColorID = 3

// New builds a Server from an already-loaded configuration and an open
// store. It loads the canvas, wires every domain package together, and
// registers administrators.
func New(ctx context.Context, cfg *config.Config, st *store.Store) (*Server, error) {
	c, err := canvas.Load(ctx, st, cfg.NewDBCanvasSize, cfg.Palette(), defaultFillColorID)
	if err != nil {
		return nil, err
	}
	if err := c.RefreshSnapshot(); err != nil {
		return nil, err
	}

	hosts := hostreg.New(st)
	userRegistry := users.New(st)

	srv := &Server{
		cfg:      cfg,
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096, CheckOrigin: func(*http.Request) bool { return true }},
		store:    st,
		canvas:   c,
		hosts:    hosts,
		users:    userRegistry,
		conns:    make(map[*conn]struct{}),
		shutdown: make(chan struct{}),
	}

	srv.sessions = session.New(userRegistry, hosts, srv, cfg.MaxUsersPerIP, cfg.MaxConcurrentUsers, session.RateLimits{
		CanvasMaxRate:    cfg.GetCanvasMaxRate,
		CanvasPerSeconds: cfg.GetCanvasPerSeconds,
		TileMaxRate:      cfg.SetPixelMaxRate,
		TilePerSeconds:   cfg.SetPixelPerSeconds,
	})
	srv.admin = admin.New(c, srv.sessions, srv, cfg.AdminCapabilities())
	srv.dispatch = &protocol.Dispatcher{
		Canvas: c, Sessions: srv.sessions, Admin: srv.admin, Users: userRegistry,
		Broadcaster: srv, Now: time.Now,
	}
	return srv, nil
}

// ServeHTTP upgrades the connection and runs its pumps until it closes.
func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger.Warnw("websocket upgrade failed", logging.FieldError, err)
		return
	}

	address := hostreg.CanonicalAddress(r.RemoteAddr, r.Header.Get("X-Forwarded-For"))
	c := newConn(ws, address)

	srv.mu.Lock()
	srv.conns[c] = struct{}{}
	srv.mu.Unlock()

	go c.writePump()
	srv.readPump(c)

	srv.mu.Lock()
	delete(srv.conns, c)
	srv.mu.Unlock()

	_ = srv.sessions.Detach(context.Background(), c)
	_ = c.Close()
}

func (srv *Server) readPump(c *conn) {
	c.ws.SetReadLimit(1 << 20)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		ctx := context.Background()
		switch msgType {
		case websocket.TextMessage:
			srv.handleText(ctx, c, data)
		case websocket.BinaryMessage:
			srv.handleBinary(c, data)
		}
	}
}

func (srv *Server) handleText(ctx context.Context, c *conn, data []byte) {
	req, err := protocol.ParseRequest(data)
	if err != nil {
		c.enqueueJSON(protocol.Error("malformed request"))
		return
	}
	result, err := srv.dispatch.Dispatch(ctx, c, req)
	if err != nil {
		c.enqueueJSON(protocol.Error(plerrors.ClientMessage(err)))
		return
	}
	switch result.Outcome {
	case protocol.OutcomeReply:
		c.enqueueJSON(result.Payload)
	case protocol.OutcomeBroadcast:
		srv.Broadcast(result.Payload)
	}
}

func (srv *Server) handleBinary(c *conn, data []byte) {
	req, err := protocol.DecodeBinaryRequest(data)
	if err != nil {
		return
	}
	result, err := srv.dispatch.DispatchBinary(c, req)
	if err != nil {
		logging.Logger.Debugw("binary dispatch error", logging.FieldError, err)
		return
	}
	switch result.Outcome {
	case protocol.OutcomeReply:
		c.enqueueBinary(result.Frame)
	case protocol.OutcomeBroadcast:
		srv.Broadcast(result.Frame)
	}
}

// Broadcast implements protocol.Broadcaster: a []byte is sent as a raw
// binary frame, anything else is JSON-marshaled as a text frame.
func (srv *Server) Broadcast(v any) {
	srv.mu.Lock()
	targets := make([]*conn, 0, len(srv.conns))
	for c := range srv.conns {
		targets = append(targets, c)
	}
	srv.mu.Unlock()

	if raw, ok := v.([]byte); ok {
		for _, c := range targets {
			c.enqueueBinary(raw)
		}
		return
	}
	for _, c := range targets {
		c.enqueueJSON(v)
	}
}

// Unicast implements protocol.Broadcaster for a single connection.
func (srv *Server) Unicast(target session.Conn, v any) {
	c, ok := target.(*conn)
	if !ok {
		return
	}
	if raw, ok := v.([]byte); ok {
		c.enqueueBinary(raw)
		return
	}
	c.enqueueJSON(v)
}

// Kicked implements session.Notifier.
func (srv *Server) Kicked(target session.Conn, reason, buttonLabel string) {
	srv.Unicast(target, protocol.Kicked(reason, buttonLabel))
}

// TileCountIncrement implements session.Notifier.
func (srv *Server) TileCountIncrement(target session.Conn, amount int) {
	srv.Unicast(target, protocol.IncrementTileCount(amount))
}

// UserCountChanged implements session.Notifier.
func (srv *Server) UserCountChanged(count int) {
	srv.Broadcast(protocol.UserCount(count))
}

// Announcement implements admin.Notifier.
func (srv *Server) Announcement(text string) {
	srv.Broadcast(protocol.Announcement(text))
}

// TileUpdate implements admin.Notifier.
func (srv *Server) TileUpdate(x, y int, tile model.Tile) {
	srv.Broadcast(protocol.TileUpdate(x, y, tile.ColorID))
}

// Shutdown implements admin.Notifier: it signals the run loop to stop
// accepting new traffic; the actual process exit happens in cmd/placewall
// after a final flush.
func (srv *Server) Shutdown() {
	srv.once.Do(func() { close(srv.shutdown) })
}

// ShutdownRequested reports whether an admin has triggered a shutdown.
func (srv *Server) ShutdownRequested() <-chan struct{} { return srv.shutdown }
