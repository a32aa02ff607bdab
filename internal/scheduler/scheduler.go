// Package scheduler drives the periodic sweep through a cron engine and
// provides the Redis lease that keeps concurrent deployments from running the
// same sweep twice.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the sweep on a cron spec.
type Scheduler struct {
	engine   *cron.Cron
	spec     string
	timeout  time.Duration
	logger   *slog.Logger
	runSweep func(ctx context.Context, now time.Time) error
}

func New(spec string, timeout time.Duration, logger *slog.Logger, runSweep func(ctx context.Context, now time.Time) error) *Scheduler {
	return &Scheduler{
		engine:   cron.New(cron.WithLocation(time.UTC)),
		spec:     spec,
		timeout:  timeout,
		logger:   logger,
		runSweep: runSweep,
	}
}

// Start registers the sweep job and starts the cron engine.
func (s *Scheduler) Start() error {
	_, err := s.engine.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		now := time.Now().UTC()
		s.logger.InfoContext(ctx, "scheduled sweep starting", "at", now)
		if err := s.runSweep(ctx, now); err != nil {
			s.logger.ErrorContext(ctx, "scheduled sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("add sweep cron job %q: %w", s.spec, err)
	}

	s.engine.Start()
	s.logger.Info("sweep scheduler started", "spec", s.spec)
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.engine.Stop()
	<-ctx.Done()
	s.logger.Info("sweep scheduler stopped")
}
