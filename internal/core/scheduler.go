package core

// scheduler.go keeps the published table in step with its source.
//
// The refresh scheduler loads immediately on start, then reloads every
// interval until the context is cancelled. A failed reload is logged and the
// previous snapshot keeps serving; the next tick tries again.

import (
	"context"
	"log/slog"
	"time"
)

// StartRefreshScheduler performs the initial load and then reloads every
// interval. With a zero or negative interval it loads once and returns.
// It blocks until ctx is cancelled, so callers run it in a goroutine.
func (s *Service) StartRefreshScheduler(ctx context.Context, interval time.Duration) {
	slog.Info("refresh scheduler started",
		"source", s.src.Name(),
		"interval", interval.String(),
	)

	s.runRefresh(ctx)

	if interval <= 0 {
		slog.Info("periodic refresh disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresh scheduler stopped")
			return
		case <-ticker.C:
			s.runRefresh(ctx)
		}
	}
}

// runRefresh performs one reload. Errors are already logged by Reload.
func (s *Service) runRefresh(ctx context.Context) {
	slog.Debug("refresh started")
	if _, err := s.Reload(ctx); err != nil && s.Ready() {
		slog.Warn("keeping previous snapshot", "snapshot_id", s.Snapshot().ID)
	}
}
