package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/float-query-service/internal/config"
	"github.com/couchcryptid/float-query-service/internal/domain"
)

// Provider is an augmenter that can report which backend it talks to.
type Provider interface {
	domain.Augmenter
	Name() string
}

// Noop is the provider used when augmentation is disabled.
type Noop struct {
	domain.NoopAugmenter
}

func (Noop) Name() string { return config.ProviderNone }

// New builds the augmenter selected by the configuration. A provider that
// cannot be constructed falls back to Noop with a warning.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) Provider {
	name := cfg.AugmentProvider()
	p, err := build(ctx, name, cfg)
	if err != nil {
		logger.Warn("llm augmenter unavailable, answers stay deterministic", "provider", name, "error", err)
		return Noop{}
	}
	logger.Info("llm augmenter configured", "provider", p.Name())
	return p
}

func build(ctx context.Context, name string, cfg *config.Config) (Provider, error) {
	switch name {
	case config.ProviderNone:
		return Noop{}, nil
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	case config.ProviderGemini:
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "")
	case config.ProviderHuggingFace:
		return NewHuggingFace(cfg.HuggingFaceAPIKey, cfg.HuggingFaceModel, cfg.HuggingFaceURL, cfg.LLMTimeout)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
