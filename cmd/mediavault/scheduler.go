package main

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// scheduler runs organize passes on demand and on an interval, never two
// at once.
type scheduler struct {
	pass     func(ctx context.Context) error
	interval time.Duration
	logger   *slog.Logger

	inProgress atomic.Bool
	rerun      atomic.Bool
	passes     atomic.Int64
}

func newScheduler(pass func(ctx context.Context) error, interval time.Duration, logger *slog.Logger) *scheduler {
	return &scheduler{pass: pass, interval: interval, logger: logger}
}

// run blocks until ctx is done. Without an interval only triggers start
// passes.
func (s *scheduler) run(ctx context.Context, onStartup bool) {
	s.logger.Info("watch scheduler started",
		"interval_minutes", s.interval.Minutes(),
		"run_on_startup", onStartup,
	)

	if onStartup {
		s.trigger(ctx, "startup")
	}

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			s.logger.Info("scheduled pass triggered", "interval_minutes", s.interval.Minutes())
			s.trigger(ctx, "interval")

		case <-ctx.Done():
			s.logger.Info("watch scheduler stopped", "passes", s.passes.Load())
			return
		}
	}
}

// trigger runs a pass unless one is in progress. A trigger that arrives
// during a pass makes the running pass go once more when it finishes.
func (s *scheduler) trigger(ctx context.Context, reason string) {
	for {
		if !s.inProgress.CompareAndSwap(false, true) {
			s.rerun.Store(true)
			s.logger.Debug("pass in progress, rerun queued", "reason", reason)
			return
		}
		s.rerun.Store(false)
		s.runPass(ctx, reason)
		s.inProgress.Store(false)

		if ctx.Err() != nil || !s.rerun.Load() {
			return
		}
		reason = "rerun"
	}
}

func (s *scheduler) runPass(ctx context.Context, reason string) {
	start := time.Now()
	s.passes.Add(1)
	s.logger.Info("pass started", "reason", reason)

	err := s.pass(ctx)
	switch {
	case err == nil:
		s.logger.Info("pass completed", "reason", reason, "duration_sec", time.Since(start).Seconds())
	case errors.Is(err, context.Canceled):
		s.logger.Info("pass interrupted", "reason", reason)
	default:
		s.logger.Error("pass failed", "reason", reason, "error", err, "duration_sec", time.Since(start).Seconds())
	}
}
