package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/float-query-service/internal/domain"
	"github.com/couchcryptid/float-query-service/internal/observability"
)

// Sink is a named history recorder.
type Sink struct {
	Name     string
	Recorder Recorder
}

// Tee fans a record out to several sinks. A failing sink never stops the
// others; all failures are joined into the returned error.
type Tee struct {
	sinks   []Sink
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewTee builds a Tee over the given sinks, skipping nil recorders.
func NewTee(metrics *observability.Metrics, logger *slog.Logger, sinks ...Sink) *Tee {
	t := &Tee{metrics: metrics, logger: logger}
	for _, s := range sinks {
		if s.Recorder != nil {
			t.sinks = append(t.sinks, s)
		}
	}
	return t
}

func (t *Tee) Append(ctx context.Context, rec domain.HistoryRecord) error {
	var errs []error
	for _, s := range t.sinks {
		if err := s.Recorder.Append(ctx, rec); err != nil {
			t.metrics.HistoryAppends.WithLabelValues(s.Name, "error").Inc()
			t.logger.Warn("history append failed", "sink", s.Name, "query_id", rec.ID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		t.metrics.HistoryAppends.WithLabelValues(s.Name, "success").Inc()
	}
	return errors.Join(errs...)
}
