package usecase

import (
	"context"
	"log/slog"
	"time"

	"PolicyDigest/internal/logging"
	"PolicyDigest/internal/ports"
)

// Scheduler wires the cron driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger.With("component", "scheduler")}
}

// Start registers the pipeline with the provided scheduler. A failed run is
// logged and the next trigger proceeds normally.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("scheduled run started", "trigger", trigger)
		if err := s.pipeline.ProcessDay(ctx, trigger); err != nil {
			s.logger.Error("scheduled run failed", "error", err)
			return
		}
		s.logger.Info("scheduled run finished", "elapsed", time.Since(trigger).Round(time.Millisecond))
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
