// Package storage provides SQLite-based persistence for player speed
// preferences and finished-match results. Uses the pure-Go
// modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"pongarena/internal/session"
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// MatchRecord is a persisted match result.
type MatchRecord struct {
	ID           int64
	SessionID    string
	Mode         string
	Winner       string
	Score1       int
	Score2       int
	DurationSecs int
	CreatedAt    time.Time
}

// Open creates or opens a SQLite database at the given path. It creates the
// parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}
	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS user_settings (
			token TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (token, key)
		);

		CREATE TABLE IF NOT EXISTS match_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			winner TEXT NOT NULL,
			score1 INTEGER NOT NULL DEFAULT 0,
			score2 INTEGER NOT NULL DEFAULT 0,
			duration_secs INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_match_results_session ON match_results(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// UserSettings returns all stored key/value pairs for a token.
func (s *Store) UserSettings(token string) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM user_settings WHERE token = ?`, token)
	if err != nil {
		return nil, fmt.Errorf("storage: query settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("storage: scan setting: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate settings: %w", err)
	}
	return values, nil
}

// SetUserSetting inserts or updates one key/value pair for a token.
func (s *Store) SetUserSetting(token, key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO user_settings (token, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(token, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, token, key, value)
	if err != nil {
		return fmt.Errorf("storage: save setting: %w", err)
	}
	return nil
}

// SaveMatchResult records a finished match.
func (s *Store) SaveMatchResult(res session.Result) error {
	_, err := s.db.Exec(`
		INSERT INTO match_results (session_id, mode, winner, score1, score2, duration_secs)
		VALUES (?, ?, ?, ?, ?, ?)
	`, res.SessionID, res.Mode.String(), res.Winner.String(), res.Score1, res.Score2, int(res.Duration.Seconds()))
	if err != nil {
		return fmt.Errorf("storage: save match result: %w", err)
	}
	return nil
}

// RecentMatchResults returns the most recent match results, newest first.
func (s *Store) RecentMatchResults(limit int) ([]MatchRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, mode, winner, score1, score2, duration_secs, created_at
		FROM match_results
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: query match results: %w", err)
	}
	defer rows.Close()

	var records []MatchRecord
	for rows.Next() {
		var rec MatchRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Mode, &rec.Winner,
			&rec.Score1, &rec.Score2, &rec.DurationSecs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan match result: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate match results: %w", err)
	}
	return records, nil
}
