package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pongarena/internal/session"
)

func newTestServer(t *testing.T) (*session.Manager, *httptest.Server) {
	t.Helper()
	logger := log.New(io.Discard)

	cfg := session.DefaultConfig()
	cfg.CleanupPeriod = 50 * time.Millisecond
	manager := session.NewManager(cfg, logger)
	manager.Start()

	srv := httptest.NewServer(NewHandler(manager, logger))
	t.Cleanup(func() {
		srv.Close()
		manager.Stop()
	})
	return manager, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

type envelope struct {
	Type string `json:"type"`
	Data struct {
		Status    string `json:"gameStatus"`
		Countdown int    `json:"countdown"`
		Config    struct {
			BallSpeed   float64 `json:"ballSpeed"`
			PaddleSpeed float64 `json:"paddleSpeed"`
		} `json:"config"`
	} `json:"data"`
}

func TestConnectionReceivesGameState(t *testing.T) {
	manager, srv := newTestServer(t)

	ws := dial(t, srv, "")
	require.Equal(t, 1, manager.Count())

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := ws.ReadMessage()
	require.NoError(t, err)

	var msg envelope
	require.NoError(t, json.Unmarshal(frame, &msg))
	assert.Equal(t, "gameState", msg.Type)
	assert.Equal(t, "countdown", msg.Data.Status)
	assert.Equal(t, 6.0, msg.Data.Config.BallSpeed)
	assert.Equal(t, 8.0, msg.Data.Config.PaddleSpeed)
}

func TestInboundMessagesAreAccepted(t *testing.T) {
	_, srv := newTestServer(t)

	ws := dial(t, srv, "?mode=pvp")
	require.NoError(t, ws.WriteMessage(websocket.TextMessage,
		[]byte(`{"action":"move","direction":"up","player":"player2"}`)))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{garbage`)))

	// The session survives malformed input and keeps streaming state.
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.NoError(t, err)
}

func TestClientDisconnectTearsDownSession(t *testing.T) {
	manager, srv := newTestServer(t)

	ws := dial(t, srv, "")
	require.Equal(t, 1, manager.Count())

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return manager.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRequestToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", requestToken(req))

	req = httptest.NewRequest(http.MethodGet, "/ws?token=query-token", nil)
	assert.Equal(t, "query-token", requestToken(req))

	// The header wins when both are present.
	req = httptest.NewRequest(http.MethodGet, "/ws?token=query-token", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", requestToken(req))

	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.Equal(t, "", requestToken(req))
}

func TestConnSendBackpressure(t *testing.T) {
	// A Conn whose write pump is never started must report saturation
	// instead of blocking the caller.
	connCh := make(chan *Conn, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		connCh <- newConn(ws)
	}))
	defer srv.Close()

	ws := dial(t, srv, "")
	_ = ws
	c := <-connCh

	accepted := 0
	for i := 0; i < sendBuffer*2; i++ {
		if c.Send([]byte("frame")) {
			accepted++
		}
	}
	assert.Equal(t, sendBuffer, accepted)

	require.NoError(t, c.Close())
	assert.False(t, c.Open())
	assert.False(t, c.Send([]byte("frame")), "closed conn rejects sends")
}
