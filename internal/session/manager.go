package session

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"pongarena/internal/game"
	"pongarena/internal/settings"
)

// Config holds the manager's tuning knobs.
type Config struct {
	TickRate        int           // simulation ticks per second
	MinSendInterval time.Duration // snapshot throttle per connection
	CleanupPeriod   time.Duration // dead-session sweep interval
	CommandBuffer   int           // queued commands per session
	SettingsTimeout time.Duration // budget for the best-effort settings fetch
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TickRate:        game.TickRate,
		MinSendInterval: 16 * time.Millisecond,
		CleanupPeriod:   30 * time.Second,
		CommandBuffer:   64,
		SettingsTimeout: 2 * time.Second,
	}
}

// SettingsFetcher retrieves a user's speed preferences. Implementations are
// best-effort collaborators: errors mean "use defaults".
type SettingsFetcher interface {
	Fetch(ctx context.Context, token string) (settings.Preferences, error)
}

// ResultSaver persists finished-match results.
type ResultSaver interface {
	SaveMatchResult(res Result) error
}

// ConnParams carries the connection-establishment parameters.
type ConnParams struct {
	Token string // bearer token for the settings collaborator, may be empty
	PvP   bool   // two-player mode; default is vs CPU
	Seed  int64  // engine RNG seed, 0 means time-based
}

// Manager owns the session registry. The registry map is the only state
// shared across sessions and is guarded by the mutex; everything inside a
// Session belongs to that session's tick goroutine.
type Manager struct {
	cfg     Config
	logger  *log.Logger
	fetcher SettingsFetcher // optional
	saver   ResultSaver     // optional

	mu       sync.RWMutex
	sessions map[string]*Session

	done     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a manager. Call Start to begin the cleanup sweep.
func NewManager(cfg Config, logger *log.Logger) *Manager {
	if cfg.TickRate < 1 {
		cfg.TickRate = game.TickRate
	}
	if cfg.CommandBuffer < 1 {
		cfg.CommandBuffer = 64
	}
	return &Manager{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
}

// SetSettingsFetcher sets the optional speed-preference collaborator.
func (m *Manager) SetSettingsFetcher(f SettingsFetcher) {
	m.fetcher = f
}

// SetResultSaver sets the optional match-result store.
func (m *Manager) SetResultSaver(s ResultSaver) {
	m.saver = s
}

// Start begins the periodic dead-session sweep.
func (m *Manager) Start() {
	go m.cleanupLoop()
}

// Stop ends the sweep and closes every live session.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
	})

	m.mu.Lock()
	stale := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		stale = append(stale, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
}

// HandleConnection allocates a session for a new connection and starts its
// tick loop. The settings fetch runs in the background so a slow or dead
// collaborator never delays the first tick.
func (m *Manager) HandleConnection(conn Conn, params ConnParams) *Session {
	seed := params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	mode := ModeAI
	if params.PvP {
		mode = ModePvP
	}

	s := &Session{
		id:              uuid.NewString(),
		mode:            mode,
		engine:          game.NewEngine(seed),
		opponent:        game.NewOpponent(seed + 1),
		conn:            conn,
		logger:          m.logger,
		commands:        make(chan Command, m.cfg.CommandBuffer),
		done:            make(chan struct{}),
		minSendInterval: m.cfg.MinSendInterval,
		startedAt:       time.Now(),
	}
	if m.saver != nil {
		s.onResult = m.saveResult
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	if m.fetcher != nil && params.Token != "" {
		go m.fetchPreferences(s, params.Token)
	}

	go s.run(time.Second / time.Duration(m.cfg.TickRate))

	m.logger.Info("session started", "session", s.id, "mode", mode)
	return s
}

// HandleMessage decodes an inbound frame and queues it on the owning
// session. Malformed frames are logged and dropped; the session continues.
func (m *Manager) HandleMessage(id string, raw []byte) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return
	}

	cmd, err := DecodeCommand(raw)
	if err != nil {
		m.logger.Warn("dropping malformed message", "session", id, "error", err)
		return
	}
	s.Enqueue(cmd)
}

// Disconnect tears down one session after a transport close or error.
// The tick loop is stopped before the registry entry disappears.
func (m *Manager) Disconnect(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		s.Close()
		m.logger.Info("session closed", "session", id)
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(m.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.done:
			return
		}
	}
}

// sweep removes sessions whose connection is no longer open. Normal
// disconnects go through Disconnect synchronously; the sweep catches
// anything that slipped past, like a transport that died without an error.
func (m *Manager) sweep() {
	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if !s.conn.Open() {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		m.logger.Info("swept dead session", "session", s.id)
	}
}

func (m *Manager) fetchPreferences(s *Session, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SettingsTimeout)
	defer cancel()

	prefs, err := m.fetcher.Fetch(ctx, token)
	if err != nil {
		m.logger.Warn("settings fetch failed, keeping defaults", "session", s.id, "error", err)
		return
	}
	if prefs.BallSpeed == nil && prefs.PaddleSpeed == nil {
		return
	}
	// Applied between ticks like any other command. Preferences affect only
	// this session.
	s.Enqueue(SettingsCommand{BallSpeed: prefs.BallSpeed, PaddleSpeed: prefs.PaddleSpeed})
}

// saveResult persists a finished match without blocking the tick loop.
func (m *Manager) saveResult(res Result) {
	go func() {
		if err := m.saver.SaveMatchResult(res); err != nil {
			m.logger.Warn("failed to save match result", "session", res.SessionID, "error", err)
		}
	}()
}
