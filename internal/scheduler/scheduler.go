package scheduler

import (
	"context"
	"log/slog"
	"time"

	"wp_importer/internal/domain"
	"wp_importer/internal/service"
)

// Importer defines the interface for import operations.
type Importer interface {
	Import(ctx context.Context, opts service.ImportOptions) (*domain.ImportStats, error)
}

// Scheduler re-runs the same import on a fixed interval, for keeping the
// local copy in step with the remote site.
type Scheduler struct {
	importer Importer
	opts     service.ImportOptions
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(importer Importer, opts service.ImportOptions, interval time.Duration, logger *slog.Logger) *Scheduler {
	// a scheduled run must never wipe the tables it just filled
	opts.Truncate = false

	return &Scheduler{
		importer: importer,
		opts:     opts,
		interval: interval,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runImport(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runImport(ctx)
		}
	}
}

func (s *Scheduler) runImport(ctx context.Context) {
	importCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if _, err := s.importer.Import(importCtx, s.opts); err != nil {
		s.logger.Error("import failed", "error", err)
	}
}
