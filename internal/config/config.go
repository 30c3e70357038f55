// Package config provides YAML-based server configuration with built-in
// defaults and a search-order loader.
package config

import (
	"fmt"
	"time"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Game     GameConfig     `yaml:"game"`
	Session  SessionConfig  `yaml:"session"`
	Settings SettingsConfig `yaml:"settings"`
	Storage  StorageConfig  `yaml:"storage"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr                string `yaml:"addr"`
	ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_secs"`
}

// GameConfig holds simulation settings.
type GameConfig struct {
	TickRate int `yaml:"tick_rate"` // simulation ticks per second
}

// SessionConfig holds per-session tuning.
type SessionConfig struct {
	SendIntervalMS    int `yaml:"send_interval_ms"`    // snapshot throttle
	CleanupPeriodSecs int `yaml:"cleanup_period_secs"` // dead-session sweep
	CommandBuffer     int `yaml:"command_buffer"`      // queued inputs per session
}

// SettingsConfig points at the speed-preference collaborator.
// An empty URL means "read preferences from local storage".
type SettingsConfig struct {
	URL       string `yaml:"url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// StorageConfig holds the database location.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:                ":8080",
			ShutdownTimeoutSecs: 10,
		},
		Game: GameConfig{
			TickRate: 60,
		},
		Session: SessionConfig{
			SendIntervalMS:    16,
			CleanupPeriodSecs: 30,
			CommandBuffer:     64,
		},
		Settings: SettingsConfig{
			TimeoutMS: 2000,
		},
		Storage: StorageConfig{
			DBPath: "~/.pongarena/pongarena.db",
		},
	}
}

// Validate checks the configuration for values that would break the server.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr must not be empty")
	}
	if c.Game.TickRate < 1 || c.Game.TickRate > 240 {
		return fmt.Errorf("config: game.tick_rate %d out of range [1, 240]", c.Game.TickRate)
	}
	if c.Session.SendIntervalMS < 0 {
		return fmt.Errorf("config: session.send_interval_ms must not be negative")
	}
	if c.Session.CleanupPeriodSecs < 1 {
		return fmt.Errorf("config: session.cleanup_period_secs must be at least 1")
	}
	if c.Session.CommandBuffer < 1 {
		return fmt.Errorf("config: session.command_buffer must be at least 1")
	}
	return nil
}

// SendInterval returns the snapshot throttle as a duration.
func (c Config) SendInterval() time.Duration {
	return time.Duration(c.Session.SendIntervalMS) * time.Millisecond
}

// CleanupPeriod returns the sweep interval as a duration.
func (c Config) CleanupPeriod() time.Duration {
	return time.Duration(c.Session.CleanupPeriodSecs) * time.Second
}

// SettingsTimeout returns the settings fetch budget as a duration.
func (c Config) SettingsTimeout() time.Duration {
	return time.Duration(c.Settings.TimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns the graceful shutdown budget as a duration.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSecs) * time.Second
}
