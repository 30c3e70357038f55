package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"pongarena/internal/config"
	"pongarena/internal/session"
	"pongarena/internal/settings"
	"pongarena/internal/storage"
	"pongarena/internal/transport"
)

var (
	flagAddr     string
	flagDBPath   string
	flagTickRate int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Pong game server",
	Long: `Start the WebSocket game server.

Each connection gets its own authoritative simulation ticking at the
configured rate. The /api/settings endpoint serves per-user speed
preferences from local storage; point settings.url at an external service
to fetch them from elsewhere instead.

Connection parameters:
  /ws?mode=pvp           - two-player session (both paddles client-driven)
  /ws?token=<bearer>     - fetch the user's speed preferences

Examples:
  pongarena serve                    # Listen on :8080
  pongarena serve --addr :9000
  pongarena serve --db ./pong.db`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (host:port), overrides config")
	serveCmd.Flags().StringVar(&flagDBPath, "db", "", "Path to database file, overrides config")
	serveCmd.Flags().IntVar(&flagTickRate, "tick-rate", 0, "Simulation ticks per second, overrides config")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return err
	}
	if flagAddr != "" {
		cfg.Server.Addr = flagAddr
	}
	if flagDBPath != "" {
		cfg.Storage.DBPath = flagDBPath
	}
	if flagTickRate != 0 {
		cfg.Game.TickRate = flagTickRate
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "pongarena",
	})

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		logger.Warn("could not open database, preferences and results disabled", "error", err)
		// Continue without storage
	} else {
		defer store.Close()
	}

	manager := session.NewManager(session.Config{
		TickRate:        cfg.Game.TickRate,
		MinSendInterval: cfg.SendInterval(),
		CleanupPeriod:   cfg.CleanupPeriod(),
		CommandBuffer:   cfg.Session.CommandBuffer,
		SettingsTimeout: cfg.SettingsTimeout(),
	}, logger)

	switch {
	case cfg.Settings.URL != "":
		manager.SetSettingsFetcher(settings.NewClient(cfg.Settings.URL, cfg.SettingsTimeout()))
	case store != nil:
		manager.SetSettingsFetcher(settings.NewStoreFetcher(store))
	}
	if store != nil {
		manager.SetResultSaver(store)
	}

	manager.Start()
	defer manager.Stop()

	mux := http.NewServeMux()
	mux.Handle("/ws", transport.NewHandler(manager, logger))
	if store != nil {
		mux.Handle("/api/settings", settings.NewHandler(store, logger))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr, "tick_rate", cfg.Game.TickRate)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
