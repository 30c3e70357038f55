// Package session owns the set of live game sessions: one authoritative
// engine, opponent controller, and fixed-rate tick loop per connection, plus
// the registry that routes inbound messages and cleans up dead sessions.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"pongarena/internal/game"
)

// Mode selects who controls the right paddle.
type Mode int

const (
	// ModeAI drives paddle 2 with the opponent controller.
	ModeAI Mode = iota

	// ModePvP lets the connection drive both paddles.
	ModePvP
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeAI:
		return "ai"
	case ModePvP:
		return "pvp"
	default:
		return "unknown"
	}
}

// Conn is the transport-neutral handle a session writes to. Implementations
// must make Send non-blocking: return false instead of blocking when the
// outbound buffer is saturated or the connection is gone.
type Conn interface {
	// Send queues a frame for delivery. Reports whether it was accepted.
	Send(payload []byte) bool

	// Open reports whether the connection can still deliver frames.
	Open() bool

	// Close tears the connection down. Safe to call multiple times.
	Close() error
}

// Result is the outcome of a finished match, reported once per match.
type Result struct {
	SessionID string
	Mode      Mode
	Winner    game.PlayerID
	Score1    int
	Score2    int
	Duration  time.Duration
}

// stateMessage is the outbound envelope sent every tick.
type stateMessage struct {
	Type string        `json:"type"`
	Data game.Snapshot `json:"data"`
}

// Session binds one connection to one engine and drives the tick loop.
// The engine and opponent are touched only from the tick goroutine.
type Session struct {
	id       string
	mode     Mode
	engine   *game.Engine
	opponent *game.Opponent
	conn     Conn
	logger   *log.Logger

	commands chan Command
	done     chan struct{}
	stopOnce sync.Once

	minSendInterval time.Duration
	lastSend        time.Time

	startedAt  time.Time
	resultSent bool
	onResult   func(Result)
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Mode returns the session's play mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// Enqueue queues a command for application between ticks. Drops the command
// with a warning if the buffer is full, so a flooding client cannot block
// the caller.
func (s *Session) Enqueue(cmd Command) {
	select {
	case s.commands <- cmd:
	default:
		s.logger.Warn("command buffer full, dropping", "session", s.id)
	}
}

// Close stops the tick loop and closes the connection. The loop is signalled
// before the connection is torn down so no further tick writes to it.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// run drives the fixed-rate tick loop until the session closes.
func (s *Session) run(tickPeriod time.Duration) {
	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(time.Now())
		case <-s.done:
			return
		}
	}
}

// tick runs one simulation step. A fault in one tick is logged and skipped;
// the loop continues on the next scheduled tick and other sessions are
// never affected.
func (s *Session) tick(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick panicked", "session", s.id, "panic", r)
		}
	}()

	s.drainCommands()
	s.engine.Update(now)

	if s.mode == ModeAI && s.engine.Phase() == game.PhasePlaying {
		switch s.opponent.Move(now, s.engine.Snapshot()) {
		case game.MoveUp:
			s.engine.MovePaddle(game.Player2, game.DirUp)
		case game.MoveDown:
			s.engine.MovePaddle(game.Player2, game.DirDown)
		}
	}

	if s.engine.Phase() == game.PhaseGameOver {
		s.reportResult(now)
	}

	s.send(now)
}

// send pushes a snapshot unless the connection is gone, the send throttle
// has not elapsed, or the outbound buffer is saturated. Skipped frames are
// simply superseded by the next tick's snapshot.
func (s *Session) send(now time.Time) {
	if !s.conn.Open() {
		return
	}
	if now.Sub(s.lastSend) < s.minSendInterval {
		return
	}

	payload, err := json.Marshal(stateMessage{Type: "gameState", Data: s.engine.Snapshot()})
	if err != nil {
		s.logger.Error("snapshot marshal failed", "session", s.id, "error", err)
		return
	}
	if s.conn.Send(payload) {
		s.lastSend = now
	}
}

func (s *Session) drainCommands() {
	for {
		select {
		case cmd := <-s.commands:
			s.apply(cmd)
		default:
			return
		}
	}
}

func (s *Session) apply(cmd Command) {
	switch c := cmd.(type) {
	case MoveCommand:
		player := c.Player
		if s.mode == ModeAI {
			// The controller owns paddle 2 in single-player sessions.
			player = game.Player1
		}
		s.engine.MovePaddle(player, c.Direction)
	case SettingsCommand:
		if c.BallSpeed != nil {
			s.engine.SetBallSpeed(*c.BallSpeed)
		}
		if c.PaddleSpeed != nil {
			s.engine.SetPaddleSpeed(*c.PaddleSpeed)
		}
	case NewMatchCommand:
		s.engine.StartNewMatch()
		s.resultSent = false
		s.startedAt = time.Now()
	case StartCountdownCommand:
		s.engine.StartCountdown()
	}
}

func (s *Session) reportResult(now time.Time) {
	if s.resultSent {
		return
	}
	s.resultSent = true
	if s.onResult == nil {
		return
	}
	score1, score2 := s.engine.Scores()
	s.onResult(Result{
		SessionID: s.id,
		Mode:      s.mode,
		Winner:    s.engine.Winner(),
		Score1:    score1,
		Score2:    score2,
		Duration:  now.Sub(s.startedAt),
	})
}
