// Package pipeline answers natural-language questions about the float
// dataset: extract intent, aggregate, compose, optionally augment, record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/float-query-service/internal/domain"
	"github.com/couchcryptid/float-query-service/internal/history"
	"github.com/couchcryptid/float-query-service/internal/observability"
)

// AnonymousUser is the user id applied when a request carries none.
const AnonymousUser = "anonymous"

const defaultHistoryTimeout = 2 * time.Second

const tracerName = "github.com/couchcryptid/float-query-service/internal/pipeline"

// Request is one question from a user.
type Request struct {
	Query     string
	SessionID string
	UserID    string
}

// Pipeline wires the query stages together. It is safe for concurrent use.
type Pipeline struct {
	store          *domain.Store
	extractor      *domain.Extractor
	geocoder       domain.Geocoder
	augmenter      domain.Augmenter
	provider       string
	augmentTimeout time.Duration
	augmentLimit   *rate.Limiter
	history        history.Recorder
	historyTimeout time.Duration
	logger         *slog.Logger
	metrics        *observability.Metrics
	tracer         trace.Tracer
}

// Option configures optional collaborators. Anything left unset is disabled.
type Option func(*Pipeline)

// WithGeocoder resolves free-text places to a search box around them.
func WithGeocoder(g domain.Geocoder) Option {
	return func(p *Pipeline) { p.geocoder = g }
}

// WithAugmenter rewrites answers through a language model. provider labels
// metrics; timeout bounds each attempt.
func WithAugmenter(a domain.Augmenter, provider string, timeout time.Duration) Option {
	return func(p *Pipeline) {
		p.augmenter = a
		p.provider = provider
		p.augmentTimeout = timeout
	}
}

// WithAugmentRateLimit caps augmenter calls at perSecond with the given
// burst. Answers over the limit skip augmentation. perSecond <= 0 disables the cap.
func WithAugmentRateLimit(perSecond float64, burst int) Option {
	return func(p *Pipeline) {
		if perSecond <= 0 {
			p.augmentLimit = nil
			return
		}
		p.augmentLimit = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithHistory records every answer.
func WithHistory(r history.Recorder) Option {
	return func(p *Pipeline) { p.history = r }
}

// WithHistoryTimeout bounds each history append. Non-positive values keep the default.
func WithHistoryTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.historyTimeout = d
		}
	}
}

// WithDepthTolerance sets the half-width of the depth window.
func WithDepthTolerance(tol float64) Option {
	return func(p *Pipeline) { p.extractor = domain.NewExtractor(tol) }
}

// New creates a Pipeline over a loaded profile store.
func New(store *domain.Store, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:          store,
		extractor:      domain.NewExtractor(domain.DefaultDepthTolerance),
		augmentTimeout: defaultAugmentTimeout,
		historyTimeout: defaultHistoryTimeout,
		logger:         logger,
		metrics:        metrics,
		tracer:         otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewSessionID returns a fresh session id of the form session_<user>_<8 hex>.
func NewSessionID(userID string) string {
	if userID == "" {
		userID = AnonymousUser
	}
	return fmt.Sprintf("session_%s_%s", userID, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// CheckReadiness returns nil once the profile store holds data.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.store == nil {
		return domain.ErrStoreUnavailable
	}
	if p.store.Len() == 0 {
		return errors.New("profile store is empty")
	}
	return nil
}

// Answer runs one query end to end. It never returns an error: no-data and
// internal faults both come back as a user-safe response.
func (p *Pipeline) Answer(ctx context.Context, req Request) (ans domain.Answer) {
	start := time.Now()
	userID := req.UserID
	if userID == "" {
		userID = AnonymousUser
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = NewSessionID(userID)
	}
	queryID := uuid.NewString()

	ctx, span := p.tracer.Start(ctx, "pipeline.answer", trace.WithAttributes(
		attribute.String("query.id", queryID),
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	logger := p.logger.With("query_id", queryID, "session_id", sessionID)
	run := &queryRun{state: domain.StateReceived, span: span, logger: logger}
	var intent domain.Intent
	outcome := "answered"

	defer func() {
		if r := recover(); r != nil {
			p.metrics.InternalFaults.Inc()
			logger.Error("internal fault", "panic", r, "stack", string(debug.Stack()))
			span.SetStatus(codes.Error, fmt.Sprint(r))
			run.advance(domain.StateFailed)
			outcome = "fault"
			ans = domain.Answer{Response: domain.ApologyText, SessionID: sessionID, QueryID: queryID}
		}
		run.advance(domain.StateReturned)

		op := string(intent.Operation)
		if op == "" {
			op = "UNKNOWN"
		}
		p.metrics.QueriesTotal.WithLabelValues(op, outcome).Inc()
		p.metrics.QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		p.record(ctx, userID, req.Query, intent, ans, logger)
	}()

	ans = domain.Answer{SessionID: sessionID, QueryID: queryID}

	intent = p.extract(ctx, req.Query)
	run.advance(domain.StateIntentExtracted)

	res, err := p.aggregate(ctx, intent)
	var noData *domain.NoMatchingDataError
	switch {
	case errors.As(err, &noData):
		p.metrics.NoDataTotal.Inc()
		logger.Info("no matching data", "reason", noData.Reason, "variable", intent.Variable)
		run.advance(domain.StateFailed)
		outcome = "no_data"
		ans.Response = domain.ComposeNoData(noData).Text
		ans.Data = domain.NoDataAnswerData(intent)
		return ans
	case err != nil:
		p.metrics.InternalFaults.Inc()
		logger.Error("aggregation failed", "error", err)
		span.SetStatus(codes.Error, err.Error())
		run.advance(domain.StateFailed)
		outcome = "fault"
		ans.Response = domain.ApologyText
		return ans
	}
	run.advance(domain.StateAggregated)

	comp := p.compose(ctx, intent, res)
	run.advance(domain.StateComposed)

	if comp.Text == domain.ApologyText {
		p.metrics.InternalFaults.Inc()
		logger.Error("composition degraded to apology", "operation", intent.Operation)
		outcome = "fault"
		ans.Response = domain.ApologyText
		return ans
	}

	text := p.augment(ctx, comp.Text, domain.AugmentContext{Query: req.Query, Intent: intent, Result: res}, logger)
	if text != comp.Text {
		run.advance(domain.StateAugmented)
	}

	ans.Response = text
	ans.Data = domain.NewAnswerData(res)
	if !comp.Visualization.IsNone() {
		vis := comp.Visualization
		ans.Visualization = &vis
	}
	logger.Debug("query answered", "operation", intent.Operation, "variable", intent.Variable, "n_samples", res.NSamples)
	return ans
}

func (p *Pipeline) extract(ctx context.Context, query string) domain.Intent {
	ctx, span := p.tracer.Start(ctx, "pipeline.extract")
	defer span.End()

	intent := p.extractor.Extract(query)
	intent = domain.ResolvePlace(ctx, intent, p.geocoder, p.logger)
	span.SetAttributes(
		attribute.String("intent.variable", string(intent.Variable)),
		attribute.String("intent.operation", string(intent.Operation)),
	)
	return intent
}

func (p *Pipeline) aggregate(ctx context.Context, intent domain.Intent) (domain.AggregationResult, error) {
	_, span := p.tracer.Start(ctx, "pipeline.aggregate")
	defer span.End()

	res, err := domain.Aggregate(intent, p.store)
	span.SetAttributes(
		attribute.Int("result.n_profiles", res.NProfiles),
		attribute.Int("result.n_samples", res.NSamples),
	)
	return res, err
}

func (p *Pipeline) compose(ctx context.Context, intent domain.Intent, res domain.AggregationResult) domain.Composition {
	_, span := p.tracer.Start(ctx, "pipeline.compose")
	defer span.End()
	return domain.Compose(intent, res)
}

// record appends the answer to history. Failures are logged, never surfaced.
func (p *Pipeline) record(ctx context.Context, userID, query string, intent domain.Intent, ans domain.Answer, logger *slog.Logger) {
	if p.history == nil {
		return
	}
	// The append outlives a canceled request but never blocks it past historyTimeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.historyTimeout)
	defer cancel()
	ctx, span := p.tracer.Start(ctx, "pipeline.history")
	defer span.End()

	rec := domain.NewHistoryRecord(userID, query, intent, ans)
	if err := p.history.Append(ctx, rec); err != nil {
		span.RecordError(err)
		logger.Warn("history append failed", "error", err)
	}
}

// queryRun tracks the per-query state machine.
type queryRun struct {
	state  domain.QueryState
	span   trace.Span
	logger *slog.Logger
}

func (r *queryRun) advance(next domain.QueryState) {
	if r.state == next {
		return
	}
	if !r.state.CanTransition(next) {
		r.logger.Warn("unexpected query state transition", "from", r.state, "to", next)
	}
	r.span.AddEvent(string(next))
	r.state = next
}
