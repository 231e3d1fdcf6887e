// Package scheduler runs the periodic alert-log retention sweep.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/pollenguard/allergy-risk/internal/domain"
	"github.com/pollenguard/allergy-risk/internal/observability"
)

// AlertPruner removes alert log rows older than a cutoff.
type AlertPruner interface {
	PruneAlerts(ctx context.Context, olderThan time.Time) (int64, error)
}

// Scheduler prunes alert logs past their retention window on a fixed
// interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     AlertPruner
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a retention scheduler. retention is how long alert rows are
// kept; interval is how often the sweep runs.
func New(store AlertPruner, retention, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     store,
		retention: retention,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
	}
}

// Start schedules the sweep and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.run); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.logger.Info("retention sweep scheduled",
		"interval", s.interval,
		"retention", s.retention)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Sweep(ctx)
}

// Sweep runs one retention pass. Failures are logged and retried on the
// next interval.
func (s *Scheduler) Sweep(ctx context.Context) {
	cutoff := domain.Now().Add(-s.retention)
	pruned, err := s.store.PruneAlerts(ctx, cutoff)
	if err != nil {
		s.logger.Error("retention sweep failed", "error", err)
		return
	}
	s.metrics.AlertLogsPruned.Add(float64(pruned))
	if pruned > 0 {
		s.logger.Info("retention sweep pruned alerts",
			"pruned", pruned,
			"cutoff", cutoff.UTC())
	}
}
