package session

import (
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pongarena/internal/game"
)

// fakeConn records sent frames and exposes switches for the backpressure
// and liveness paths.
type fakeConn struct {
	mu     sync.Mutex
	open   bool
	full   bool
	frames [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{open: true}
}

func (c *fakeConn) Send(p []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || c.full {
		return false
	}
	frame := make([]byte, len(p))
	copy(frame, p)
	c.frames = append(c.frames, frame)
	return true
}

func (c *fakeConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *fakeConn) lastFrame() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

func (c *fakeConn) setFull(full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.full = full
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestSession(mode Mode) (*Session, *fakeConn) {
	conn := newFakeConn()
	s := &Session{
		id:              "test-session",
		mode:            mode,
		engine:          game.NewEngine(1),
		opponent:        game.NewOpponent(2),
		conn:            conn,
		logger:          discardLogger(),
		commands:        make(chan Command, 64),
		done:            make(chan struct{}),
		minSendInterval: 16 * time.Millisecond,
		startedAt:       time.Now(),
	}
	return s, conn
}

// advanceToPlaying ticks the session past the serve countdown.
func advanceToPlaying(t *testing.T, s *Session) time.Time {
	t.Helper()
	start := time.Unix(1000, 0)
	s.tick(start)
	s.tick(start.Add(2 * time.Second))
	now := start.Add(4 * time.Second)
	s.tick(now)
	require.Equal(t, game.PhasePlaying, s.engine.Phase())
	return now
}

func decodeFrame(t *testing.T, frame []byte) stateMessage {
	t.Helper()
	var msg stateMessage
	require.NoError(t, json.Unmarshal(frame, &msg))
	return msg
}

func TestTickSendsSnapshot(t *testing.T) {
	s, conn := newTestSession(ModePvP)

	s.tick(time.Unix(1000, 0))

	require.Equal(t, 1, conn.frameCount())
	msg := decodeFrame(t, conn.lastFrame())
	assert.Equal(t, "gameState", msg.Type)
	assert.Equal(t, "countdown", msg.Data.Status)
	assert.Equal(t, 3, msg.Data.Countdown)
	assert.Equal(t, 6.0, msg.Data.Config.BallSpeed)
	assert.Equal(t, 8.0, msg.Data.Config.PaddleSpeed)
}

func TestSendThrottle(t *testing.T) {
	s, conn := newTestSession(ModePvP)
	start := time.Unix(1000, 0)

	s.tick(start)
	s.tick(start.Add(5 * time.Millisecond))
	assert.Equal(t, 1, conn.frameCount(), "frame inside the throttle window must be skipped")

	s.tick(start.Add(20 * time.Millisecond))
	assert.Equal(t, 2, conn.frameCount())
}

func TestSendSkipsSaturatedBuffer(t *testing.T) {
	s, conn := newTestSession(ModePvP)
	start := time.Unix(1000, 0)

	conn.setFull(true)
	s.tick(start)
	assert.Equal(t, 0, conn.frameCount())

	// A rejected send must not update the throttle clock: the next tick
	// retries immediately.
	conn.setFull(false)
	s.tick(start.Add(time.Millisecond))
	assert.Equal(t, 1, conn.frameCount())
}

func TestSendSkipsClosedConn(t *testing.T) {
	s, conn := newTestSession(ModePvP)
	require.NoError(t, conn.Close())

	s.tick(time.Unix(1000, 0))
	assert.Equal(t, 0, conn.frameCount())
}

func TestMoveCommandInPvP(t *testing.T) {
	s, _ := newTestSession(ModePvP)
	now := advanceToPlaying(t, s)

	before := s.engine.Snapshot()
	s.Enqueue(MoveCommand{Player: game.Player2, Direction: game.DirUp})
	s.tick(now.Add(16 * time.Millisecond))

	after := s.engine.Snapshot()
	assert.Equal(t, before.Player1.Y, after.Player1.Y)
	assert.Less(t, after.Player2.Y, before.Player2.Y)
}

func TestMoveCommandInAIModeDrivesPaddle1(t *testing.T) {
	s, _ := newTestSession(ModeAI)
	now := advanceToPlaying(t, s)

	// The controller owns paddle 2, so a stray player2 move from the
	// client lands on paddle 1.
	before := s.engine.Snapshot()
	s.Enqueue(MoveCommand{Player: game.Player2, Direction: game.DirUp})
	s.tick(now.Add(16 * time.Millisecond))

	after := s.engine.Snapshot()
	assert.Less(t, after.Player1.Y, before.Player1.Y)
}

func TestSettingsCommand(t *testing.T) {
	s, _ := newTestSession(ModePvP)
	now := advanceToPlaying(t, s)

	ball := 12.0
	s.Enqueue(SettingsCommand{BallSpeed: &ball})
	s.tick(now.Add(16 * time.Millisecond))

	snap := s.engine.Snapshot()
	assert.Equal(t, 12.0, snap.Config.BallSpeed)
	assert.Equal(t, 2.0, snap.Config.BallSpeedMultiplier)
	assert.Equal(t, 8.0, snap.Config.PaddleSpeed, "paddle speed must be untouched")
}

func TestNewMatchCommandResetsResultFlag(t *testing.T) {
	s, _ := newTestSession(ModePvP)
	var results []Result
	s.onResult = func(r Result) { results = append(results, r) }

	now := time.Unix(1000, 0)
	s.reportResult(now)
	s.reportResult(now.Add(time.Second))
	require.Len(t, results, 1, "a match result is reported once")

	s.apply(NewMatchCommand{})
	s.reportResult(now.Add(2 * time.Second))
	assert.Len(t, results, 2, "a new match may report again")
}

func TestTickRecoversFromPanic(t *testing.T) {
	s, conn := newTestSession(ModeAI)
	s.opponent = nil // forces a nil deref once the phase is Playing

	start := time.Unix(1000, 0)
	s.tick(start)
	s.tick(start.Add(2 * time.Second))

	require.NotPanics(t, func() {
		s.tick(start.Add(4 * time.Second))
	})

	// The loop keeps going: later ticks still send frames.
	s.opponent = game.NewOpponent(2)
	s.tick(start.Add(5 * time.Second))
	assert.Greater(t, conn.frameCount(), 0)
}
