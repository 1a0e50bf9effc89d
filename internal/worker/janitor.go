package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/droplog/internal/observability/metrics"
)

// TempSweeper removes leftovers of interrupted log creation
type TempSweeper interface {
	SweepTemp(ctx context.Context, maxAge time.Duration) (int, error)
}

// Janitor periodically sweeps stale temp logs out of the data directory.
// A temp log younger than maxAge may belong to an append in flight and is left alone.
type Janitor struct {
	sweeper  TempSweeper
	logger   *slog.Logger
	interval time.Duration
	maxAge   time.Duration
}

const defaultTempMaxAge = 5 * time.Minute

// NewJanitor creates a new janitor
func NewJanitor(sweeper TempSweeper, logger *slog.Logger, interval time.Duration) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		sweeper:  sweeper,
		logger:   logger,
		interval: interval,
		maxAge:   defaultTempMaxAge,
	}
}

// Start runs the sweep loop until ctx is cancelled
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("janitor started", slog.Duration("interval", j.interval))

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and returns the number of files removed
func (j *Janitor) RunOnce(ctx context.Context) int {
	removed, err := j.sweeper.SweepTemp(ctx, j.maxAge)
	if removed > 0 {
		metrics.AddJanitorRemoved(removed)
		j.logger.Info("removed stale temp logs", slog.Int("count", removed))
	}
	if err != nil {
		j.logger.Error("temp sweep failed", slog.String("error", err.Error()))
	}
	return removed
}
