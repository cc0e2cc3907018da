package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/serialyear/internal/config"
	"github.com/JonMunkholm/serialyear/internal/core"
	"github.com/JonMunkholm/serialyear/internal/database"
	"github.com/JonMunkholm/serialyear/internal/history"
	"github.com/JonMunkholm/serialyear/internal/logging"
	"github.com/JonMunkholm/serialyear/internal/source"
	"github.com/JonMunkholm/serialyear/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"database", cfg.Database.Enabled(),
		"refresh_interval", cfg.Source.RefreshInterval,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	src, err := source.New(cfg.Source)
	if err != nil {
		slog.Error("failed to configure source", "error", err)
		os.Exit(1)
	}

	opts := []core.Option{
		core.WithLimiter(core.NewLoadLimiter(cfg.Source.MaxConcurrentLoads, cfg.Source.LoadWait)),
		core.WithDecodeOptions(core.DecodeOptions{
			MaxSize:      cfg.Source.MaxSize,
			SanitizeUTF8: cfg.Source.SanitizeUTF8,
		}),
	}
	var (
		store      history.Store = history.NewMemory(cfg.History.MaxEntries)
		serverOpts []web.ServerOption
	)

	// Persistence is optional: without a database, history stays in memory
	// and load records are only logged.
	if cfg.Database.Enabled() {
		pool, err := database.Open(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			slog.Error("failed to prepare database schema", "error", err)
			os.Exit(1)
		}

		loads := database.NewLoadStore(pool)
		opts = append(opts, core.WithRecorder(loads))
		serverOpts = append(serverOpts, web.WithLoadLister(loads))
		store = database.NewHistoryStore(pool, cfg.History.MaxEntries)
	}

	service := core.NewService(src, opts...)
	server := web.NewServer(service, store, cfg, serverOpts...)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(ctx)

	// Initial load plus periodic refresh
	go service.StartRefreshScheduler(jobCtx, cfg.Source.RefreshInterval)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for in-flight loads to finish (with timeout)
		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for loads to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("loads did not complete in time", "error", err)
			} else {
				slog.Info("all loads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
