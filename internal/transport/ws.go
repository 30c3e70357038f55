// Package transport adapts WebSocket connections to the session layer.
// Each connection gets a read pump feeding the session manager and a write
// pump draining a bounded send buffer; the session layer never blocks on a
// slow client.
package transport

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"pongarena/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1024
	sendBuffer     = 256
)

// Handler upgrades HTTP requests to game WebSocket connections.
type Handler struct {
	manager  *session.Manager
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates the /ws endpoint handler.
func NewHandler(manager *session.Manager, logger *log.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params := session.ConnParams{
		Token: requestToken(r),
		PvP:   r.URL.Query().Get("mode") == "pvp",
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	conn := newConn(ws)
	go conn.writePump()

	sess := h.manager.HandleConnection(conn, params)
	go h.readPump(conn, sess.ID())
}

// readPump forwards inbound frames to the manager until the connection
// dies, then tears the session down synchronously.
func (h *Handler) readPump(c *Conn, sessionID string) {
	defer h.manager.Disconnect(sessionID)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read error", "session", sessionID, "error", err)
			}
			return
		}
		h.manager.HandleMessage(sessionID, data)
	}
}

// requestToken reads the bearer token from the Authorization header, or
// from the token query parameter for clients that cannot set headers on a
// WebSocket upgrade.
func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Conn adapts a gorilla connection to session.Conn. Writes are serialized
// by the write pump; Send never blocks.
type Conn struct {
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// Send queues a frame. Returns false when the connection is closed or the
// buffer is saturated; the caller skips the frame rather than queue
// unboundedly.
func (c *Conn) Send(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Open reports whether the connection can still deliver frames.
func (c *Conn) Open() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Close shuts the connection down. Safe to call multiple times.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

// writePump drains the send buffer and keeps the connection alive with
// pings. Any write error closes the connection; the read pump then unwinds
// the session.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
