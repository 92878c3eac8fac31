// Package wsserver is the transport glue: a gorilla/websocket hub that
// upgrades connections, runs the read/write pumps, and routes frames into
// the Protocol Dispatcher (SPEC_FULL.md §4.5/§5).
package wsserver

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brinehollow/placewall/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	sendBuffer = 32
)

// conn wraps one gorilla/websocket.Conn with the buffered send channel the
// write pump drains. It implements session.Conn.
type conn struct {
	ws         *websocket.Conn
	send       chan frame
	remoteAddr string
}

type frame struct {
	binary  bool
	payload []byte
}

func newConn(ws *websocket.Conn, remoteAddr string) *conn {
	return &conn{ws: ws, send: make(chan frame, sendBuffer), remoteAddr: remoteAddr}
}

func (c *conn) RemoteAddr() string { return c.remoteAddr }

func (c *conn) Close() error {
	close(c.send)
	return c.ws.Close()
}

// enqueueJSON marshals v and queues it as a text frame; never blocks
// indefinitely — a full send buffer means a stuck client, and that client
// gets dropped rather than stalling the broadcaster.
func (c *conn) enqueueJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Logger.Errorw("failed to marshal response", logging.FieldError, err)
		return
	}
	c.enqueue(frame{binary: false, payload: data})
}

func (c *conn) enqueueBinary(data []byte) {
	c.enqueue(frame{binary: true, payload: data})
}

func (c *conn) enqueue(f frame) {
	select {
	case c.send <- f:
	default:
		logging.Logger.Warnw("dropping slow client, send buffer full", logging.FieldHost, c.remoteAddr)
		_ = c.Close()
	}
}

// writePump drains the send channel onto the socket until it's closed.
func (c *conn) writePump() {
	for f := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		msgType := websocket.TextMessage
		if f.binary {
			msgType = websocket.BinaryMessage
		}
		if err := c.ws.WriteMessage(msgType, f.payload); err != nil {
			return
		}
	}
}

// sendPing is invoked by the ping worker; it does not go through the
// buffered send channel since control frames bypass the data frame queue.
func (c *conn) sendPing() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}
