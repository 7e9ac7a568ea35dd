package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/float-query-service/internal/observability"
)

// Pruner removes records older than a cutoff.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}

// Janitor periodically prunes history older than the retention window.
type Janitor struct {
	pruner    Pruner
	retention time.Duration
	interval  time.Duration
	clock     clockwork.Clock
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewJanitor creates a janitor that sweeps every interval. A nil clock uses real time.
func NewJanitor(p Pruner, retention, interval time.Duration, clk clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Janitor {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Janitor{
		pruner:    p,
		retention: retention,
		interval:  interval,
		clock:     clk,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run sweeps once immediately, then on every tick until ctx is canceled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()

	j.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			j.Sweep(ctx)
		}
	}
}

// Sweep prunes once and returns the number of records removed.
func (j *Janitor) Sweep(ctx context.Context) int {
	cutoff := j.clock.Now().Add(-j.retention)
	n, err := j.pruner.Prune(ctx, cutoff)
	if err != nil {
		j.logger.Error("history prune failed", "error", err)
		return 0
	}
	if n > 0 {
		j.metrics.HistoryPruned.Add(float64(n))
		j.logger.Info("history pruned", "removed", n, "cutoff", cutoff)
	}
	return n
}
