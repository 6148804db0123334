package recovery

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/boxoffice/internal/infrastructure/metrics"
	"github.com/iho/boxoffice/internal/usecase"
)

// LeaseKey names the lease that keeps sweeps to one instance at a time.
const LeaseKey = "purchase-recovery"

// Recoverer resolves purchases stuck between debit and ticket issue.
type Recoverer interface {
	RecoverStale(ctx context.Context, grace time.Duration, limit int) (usecase.RecoveryStats, error)
}

// Config for Worker.
type Config struct {
	Recoverer Recoverer
	Lease     usecase.Lease // nil runs every sweep unguarded
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
	Interval  time.Duration
	Grace     time.Duration
	BatchSize int
}

// Worker periodically completes or refunds purchases whose saga never finished.
type Worker struct {
	recoverer Recoverer
	lease     usecase.Lease
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	interval  time.Duration
	grace     time.Duration
	batchSize int
}

// NewWorker creates a new Worker.
func NewWorker(cfg Config) *Worker {
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Grace == 0 {
		cfg.Grace = 5 * time.Minute
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}

	return &Worker{
		recoverer: cfg.Recoverer,
		lease:     cfg.Lease,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With().Str("component", "recovery").Logger(),
		interval:  cfg.Interval,
		grace:     cfg.Grace,
		batchSize: cfg.BatchSize,
	}
}

// Start sweeps on every tick until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().
		Dur("interval", w.interval).
		Dur("grace", w.grace).
		Msg("recovery worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("recovery worker shutting down")
			return ctx.Err()
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one recovery pass if this instance wins the lease.
func (w *Worker) Sweep(ctx context.Context) (usecase.RecoveryStats, bool) {
	if w.lease != nil {
		ok, err := w.lease.Acquire(ctx, LeaseKey, w.interval)
		if err != nil {
			w.logger.Warn().Err(err).Msg("failed to acquire recovery lease")
			return usecase.RecoveryStats{}, false
		}
		if !ok {
			return usecase.RecoveryStats{}, false
		}
		defer func() {
			if err := w.lease.Release(context.WithoutCancel(ctx), LeaseKey); err != nil {
				w.logger.Warn().Err(err).Msg("failed to release recovery lease")
			}
		}()
	}

	stats, err := w.recoverer.RecoverStale(ctx, w.grace, w.batchSize)
	if err != nil {
		w.logger.Error().Err(err).Msg("recovery sweep failed")
		return stats, true
	}

	w.metrics.ObserveRecovery(stats.Completed, stats.Compensated)

	if stats.Scanned > 0 {
		w.logger.Info().
			Int("scanned", stats.Scanned).
			Int("completed", stats.Completed).
			Int("compensated", stats.Compensated).
			Int("skipped", stats.Skipped).
			Msg("recovery sweep finished")
	}

	return stats, true
}
