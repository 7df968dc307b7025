// Package scheduler wraps gocron to trigger ingestion runs on a fixed
// interval in server mode. The pipeline itself has no scheduling: it is a
// run-to-completion pass, so an external cron invoking cmd/collector works
// just as well.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/city-weather-service/internal/domain"
)

// Runner is the ingestion entrypoint the scheduler drives.
type Runner interface {
	Run(ctx context.Context) (domain.RunReport, error)
}

// Scheduler triggers ingestion runs every interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a Scheduler. Each triggered run is bounded by timeout.
func New(runner Runner, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// An interval of zero disables scheduling entirely.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduled ingestion disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		report, err := s.runner.Run(ctx)
		if err != nil {
			s.logger.Error("scheduled ingestion run failed", "error", err)
			return
		}
		s.logger.Info("scheduled ingestion run finished",
			"succeeded", report.Succeeded(), "failed", report.Failed())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduled ingestion enabled", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
