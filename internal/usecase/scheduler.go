package usecase

import (
	"context"
	"log/slog"
	"time"

	"PaperPoster/internal/ports"
)

// Scheduler wires the cron driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	areas    []string
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring cycles over areas.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, areas []string, log *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, areas: areas, logger: log}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if err := s.pipeline.RunCycle(ctx, s.areas); err != nil && s.logger != nil {
			s.logger.Error("scheduled cycle failed", "trigger", trigger, "error", err)
			return
		}
		if s.logger != nil {
			s.logger.Info("scheduled cycle done", "trigger", trigger)
		}
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
