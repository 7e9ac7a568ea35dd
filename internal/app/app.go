// Package app assembles the service from configuration: profile store,
// optional geocoder and augmenter, history sinks, pipeline and HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/float-query-service/internal/adapter/http"
	"github.com/couchcryptid/float-query-service/internal/adapter/fixture"
	kafkaadapter "github.com/couchcryptid/float-query-service/internal/adapter/kafka"
	"github.com/couchcryptid/float-query-service/internal/adapter/llm"
	"github.com/couchcryptid/float-query-service/internal/adapter/mapbox"
	"github.com/couchcryptid/float-query-service/internal/adapter/postgres"
	"github.com/couchcryptid/float-query-service/internal/config"
	"github.com/couchcryptid/float-query-service/internal/domain"
	"github.com/couchcryptid/float-query-service/internal/history"
	"github.com/couchcryptid/float-query-service/internal/observability"
	"github.com/couchcryptid/float-query-service/internal/pipeline"
)

const pruneInterval = time.Hour

// App is a fully wired service instance.
type App struct {
	Config   *config.Config
	Store    *domain.Store
	Pipeline *pipeline.Pipeline
	History  history.Store

	janitor *history.Janitor
	logger  *slog.Logger
	metrics *observability.Metrics
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func(context.Context) error
}

// New builds the service. Optional collaborators that fail to start are
// disabled with a warning; only the profile store and an explicitly
// configured database are fatal.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	a := &App{Config: cfg, logger: logger, metrics: metrics}

	shutdownTracing, err := observability.SetupTracing(cfg.OTelTracesStdout, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	a.addCloser("tracing", shutdownTracing)

	gen := fixture.DefaultGeneratorConfig()
	gen.Profiles = cfg.SyntheticProfiles
	gen.Levels = cfg.SyntheticLevels
	gen.Seed = cfg.SyntheticSeed
	store, err := fixture.NewStore(cfg.ProfileFixture, gen, logger)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Store = store
	metrics.ProfilesLoaded.Set(float64(store.Len()))
	metrics.ProfilesActive.Set(float64(store.ActiveCount()))

	opts := []pipeline.Option{pipeline.WithDepthTolerance(cfg.DepthTolerance)}

	// Geocoder is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		opts = append(opts, pipeline.WithGeocoder(mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)))
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("mapbox geocoding disabled")
	}

	if aug := llm.New(ctx, cfg, logger); aug.Name() != config.ProviderNone {
		opts = append(opts,
			pipeline.WithAugmenter(aug, aug.Name(), cfg.LLMTimeout),
			pipeline.WithAugmentRateLimit(cfg.LLMRateLimit, cfg.LLMRateBurst),
		)
	}

	rec, err := a.buildHistory(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	opts = append(opts, pipeline.WithHistory(rec), pipeline.WithHistoryTimeout(cfg.HistoryTimeout))

	a.Pipeline = pipeline.New(store, logger, metrics, opts...)
	a.janitor = history.NewJanitor(a.History, cfg.HistoryRetention, pruneInterval, nil, metrics, logger)
	return a, nil
}

// buildHistory picks the queryable store and wraps it with any secondary sinks.
func (a *App) buildHistory(ctx context.Context) (history.Recorder, error) {
	cfg := a.Config
	sinks := make([]history.Sink, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.History = pg
		a.addCloser("postgres", func(context.Context) error { pg.Close(); return nil })
		sinks = append(sinks, history.Sink{Name: "postgres", Recorder: pg})
		a.logger.Info("history stored in postgres")
	} else {
		mem := history.NewMemoryStore()
		a.History = mem
		sinks = append(sinks, history.Sink{Name: "memory", Recorder: mem})
		a.logger.Info("history kept in memory")
	}

	if cfg.HistoryKafkaEnabled {
		w := kafkaadapter.NewWriter(cfg, a.logger)
		a.addCloser("kafka", func(context.Context) error { return w.Close() })
		sinks = append(sinks, history.Sink{Name: "kafka", Recorder: w})
		a.logger.Info("history published to kafka", "topic", cfg.KafkaHistoryTopic, "brokers", cfg.KafkaBrokers)
	}

	return history.NewTee(a.metrics, a.logger, sinks...), nil
}

func (a *App) addCloser(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

// CheckReadiness reports ready once profiles are loaded and the history
// store answers.
func (a *App) CheckReadiness(ctx context.Context) error {
	if err := a.Pipeline.CheckReadiness(ctx); err != nil {
		return err
	}
	if p, ok := a.History.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("history store: %w", err)
		}
	}
	return nil
}

// Serve runs the HTTP server and the retention janitor until ctx is canceled
// or the server fails, then shuts both down.
func (a *App) Serve(ctx context.Context) error {
	srv := httpadapter.NewServer(a.Config.HTTPAddr, httpadapter.Deps{
		Answerer:     a.Pipeline,
		History:      a.History,
		Profiles:     a.Store,
		Ready:        a,
		QueryTimeout: a.Config.QueryTimeout,
	}, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.janitor.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})
	return g.Wait()
}

// Close releases every resource in reverse order of acquisition.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(ctx); err != nil {
			a.logger.Error("close error", "resource", c.name, "error", err)
		}
	}
	a.closers = nil
}
