package domain

import "context"

// AugmentContext is what an Augmenter may use besides the draft text.
type AugmentContext struct {
	Query  string
	Intent Intent
	Result AggregationResult
}

// Augmenter rewrites a deterministic answer into friendlier prose.
// Implementations may fail freely; callers fall back to the original text.
type Augmenter interface {
	Augment(ctx context.Context, text string, ac AugmentContext) (string, error)
}

// NoopAugmenter returns the text unchanged.
type NoopAugmenter struct{}

func (NoopAugmenter) Augment(_ context.Context, text string, _ AugmentContext) (string, error) {
	return text, nil
}
