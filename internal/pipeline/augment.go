package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/float-query-service/internal/domain"
)

const (
	defaultAugmentTimeout = 8 * time.Second
	augmentAttempts       = 2
	augmentBackoff        = 200 * time.Millisecond
	maxAugmentBackoff     = time.Second
)

var errEmptyAugment = errors.New("augmenter returned empty text")

// augment asks the configured augmenter for a rewrite, retrying once.
// Any failure returns the deterministic text unchanged.
func (p *Pipeline) augment(ctx context.Context, text string, ac domain.AugmentContext, logger *slog.Logger) string {
	if p.augmenter == nil {
		return text
	}
	if p.augmentLimit != nil && !p.augmentLimit.Allow() {
		p.metrics.AugmentRequests.WithLabelValues(p.provider, "rate_limited").Inc()
		return text
	}
	ctx, span := p.tracer.Start(ctx, "pipeline.augment")
	defer span.End()

	backoff := augmentBackoff
	for attempt := range augmentAttempts {
		if attempt > 0 {
			if !sleepWithContext(ctx, backoff) {
				break
			}
			backoff = nextBackoff(backoff, maxAugmentBackoff)
		}

		out, err := p.tryAugment(ctx, text, ac)
		if err == nil {
			p.metrics.AugmentRequests.WithLabelValues(p.provider, "success").Inc()
			return out
		}
		p.metrics.AugmentRequests.WithLabelValues(p.provider, augmentOutcome(err)).Inc()
		span.RecordError(err)
		logger.Warn("augmentation failed", "provider", p.provider, "attempt", attempt+1, "error", err)
	}

	p.metrics.AugmentRequests.WithLabelValues(p.provider, "fallback").Inc()
	return text
}

func (p *Pipeline) tryAugment(ctx context.Context, text string, ac domain.AugmentContext) (out string, err error) {
	ctx, cancel := context.WithTimeout(ctx, p.augmentTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("augmenter panic: %v", r)
		}
	}()

	start := time.Now()
	out, err = p.augmenter.Augment(ctx, text, ac)
	p.metrics.AugmentDuration.WithLabelValues(p.provider).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errEmptyAugment
	}
	return out, nil
}

func augmentOutcome(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, errEmptyAugment):
		return "empty"
	default:
		return "error"
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
