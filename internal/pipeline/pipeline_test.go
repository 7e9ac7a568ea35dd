package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/float-query-service/internal/domain"
	"github.com/couchcryptid/float-query-service/internal/history"
	"github.com/couchcryptid/float-query-service/internal/observability"
	"github.com/couchcryptid/float-query-service/internal/pipeline"
)

// --- fixtures ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func testStore(t *testing.T) *domain.Store {
	t.Helper()
	mk := func(id string, lat, lon float64, active bool, depths, temps, sals []float64) domain.Profile {
		p := domain.Profile{ID: id, Latitude: lat, Longitude: lon, Active: active,
			Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		for i, d := range depths {
			p.Samples = append(p.Samples, domain.Sample{Depth: d, Temperature: temps[i], Salinity: sals[i], Pressure: d * 1.01})
		}
		return p
	}
	s, err := domain.NewStore([]domain.Profile{
		mk("1000001", 15, 65, true, []float64{5, 500, 1000, 2000}, []float64{28, 12, 6, 2.5}, []float64{36, 35.2, 34.9, 34.7}),
		mk("1000002", 14, 88, true, []float64{0, 490, 1010, 1990}, []float64{29, 11, 5, 2}, []float64{33, 34.9, 34.95, 34.72}),
		mk("1000003", 40, -30, true, []float64{0, 995, 1800}, []float64{18, 7, 3}, []float64{36.1, 35.1, 34.9}),
	})
	require.NoError(t, err)
	return s
}

// --- mocks ---

type mockAugmenter struct {
	calls atomic.Int32
	fn    func(ctx context.Context, call int32, text string) (string, error)
}

func (m *mockAugmenter) Augment(ctx context.Context, text string, _ domain.AugmentContext) (string, error) {
	n := m.calls.Add(1)
	return m.fn(ctx, n, text)
}

type memRecorder struct {
	mu   sync.Mutex
	recs []domain.HistoryRecord
	err  error
}

func (m *memRecorder) Append(_ context.Context, rec domain.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return m.err
}

type mockGeocoder struct {
	result domain.GeocodingResult
}

func (m *mockGeocoder) ForwardGeocode(context.Context, string) (domain.GeocodingResult, error) {
	return m.result, nil
}

// --- tests ---

func TestAnswer_Scenarios(t *testing.T) {
	metrics := newTestMetrics()
	p := pipeline.New(testStore(t), discardLogger(), metrics)
	ctx := context.Background()

	t.Run("average at depth", func(t *testing.T) {
		a := p.Answer(ctx, pipeline.Request{Query: "What's the average temperature at 1000 meters depth?"})
		assert.Contains(t, a.Response, "average")
		assert.Contains(t, a.Response, "temperature")
		assert.Regexp(t, regexp.MustCompile(`\d+\.\d{2}`), a.Response)
		require.NotNil(t, a.Data)
		assert.True(t, a.Data.Success)
		assert.GreaterOrEqual(t, a.Data.Metadata.NProfiles, 1)
		assert.Nil(t, a.Visualization)
	})

	t.Run("salinity profile", func(t *testing.T) {
		a := p.Answer(ctx, pipeline.Request{Query: "Show me a salinity profile"})
		require.NotNil(t, a.Visualization)
		assert.Equal(t, domain.VisualizationChart, a.Visualization.Kind)
		pts := a.Visualization.Chart.Series[0].Points
		for i := 1; i < len(pts); i++ {
			assert.Less(t, pts[i-1].X, pts[i].X)
		}
		for _, pt := range pts {
			assert.InDelta(t, 35, pt.Y, 5)
		}
	})

	t.Run("gibberish explains", func(t *testing.T) {
		a := p.Answer(ctx, pipeline.Request{Query: "asdkjasdj"})
		assert.NotEmpty(t, a.Response)
		assert.NotEqual(t, domain.ApologyText, a.Response)
		assert.Nil(t, a.Data)
		assert.Nil(t, a.Visualization)
	})

	t.Run("out of range depth", func(t *testing.T) {
		a := p.Answer(ctx, pipeline.Request{Query: "9999m"})
		require.NotNil(t, a.Data)
		assert.False(t, a.Data.Success)
		assert.Contains(t, a.Response, "9999 m")
		assert.Nil(t, a.Visualization)
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.NoDataTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("AVERAGE", "answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("EXPLAIN", "no_data")))
}

func TestAnswer_SessionDefaults(t *testing.T) {
	p := pipeline.New(testStore(t), discardLogger(), newTestMetrics())

	a := p.Answer(context.Background(), pipeline.Request{Query: "salinity"})
	assert.Regexp(t, `^session_anonymous_[0-9a-f]{8}$`, a.SessionID)
	assert.Len(t, a.QueryID, 36)

	b := p.Answer(context.Background(), pipeline.Request{Query: "salinity", SessionID: "s-1", UserID: "alice"})
	assert.Equal(t, "s-1", b.SessionID)
	assert.NotEqual(t, a.QueryID, b.QueryID)

	assert.Regexp(t, `^session_bob_[0-9a-f]{8}$`, pipeline.NewSessionID("bob"))
}

func TestAnswer_Deterministic(t *testing.T) {
	p := pipeline.New(testStore(t), discardLogger(), newTestMetrics())
	for _, q := range []string{
		"What's the average temperature at 1000 meters depth?",
		"Show me a salinity profile",
		"compare temperature between 1000001 and 1000002",
		"asdkjasdj",
		"9999m",
	} {
		first := p.Answer(context.Background(), pipeline.Request{Query: q, SessionID: "s"})
		again := p.Answer(context.Background(), pipeline.Request{Query: q, SessionID: "s"})
		assert.Equal(t, first.Response, again.Response, q)
		if diff := cmp.Diff(first.Visualization, again.Visualization); diff != "" {
			t.Errorf("%q visualization differs (-first +again):\n%s", q, diff)
		}
		fj, err := json.Marshal(first.Visualization)
		require.NoError(t, err)
		aj, err := json.Marshal(again.Visualization)
		require.NoError(t, err)
		assert.Equal(t, fj, aj)
	}
}

func TestAnswer_Augmentation(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		metrics := newTestMetrics()
		aug := &mockAugmenter{fn: func(_ context.Context, _ int32, text string) (string, error) {
			return "Friendly: " + text, nil
		}}
		p := pipeline.New(testStore(t), discardLogger(), metrics, pipeline.WithAugmenter(aug, "mock", time.Second))

		a := p.Answer(context.Background(), pipeline.Request{Query: "average temperature"})
		assert.Contains(t, a.Response, "Friendly: The average temperature")
		assert.Equal(t, int32(1), aug.calls.Load())
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AugmentRequests.WithLabelValues("mock", "success")))
	})

	t.Run("retries once then succeeds", func(t *testing.T) {
		aug := &mockAugmenter{fn: func(_ context.Context, call int32, text string) (string, error) {
			if call == 1 {
				return "", errors.New("503")
			}
			return "retry ok", nil
		}}
		p := pipeline.New(testStore(t), discardLogger(), newTestMetrics(), pipeline.WithAugmenter(aug, "mock", time.Second))

		a := p.Answer(context.Background(), pipeline.Request{Query: "average temperature"})
		assert.Equal(t, "retry ok", a.Response)
		assert.Equal(t, int32(2), aug.calls.Load())
	})

	t.Run("failure falls back", func(t *testing.T) {
		metrics := newTestMetrics()
		plain := pipeline.New(testStore(t), discardLogger(), newTestMetrics()).
			Answer(context.Background(), pipeline.Request{Query: "average temperature"})

		aug := &mockAugmenter{fn: func(context.Context, int32, string) (string, error) {
			return "", errors.New("no credential")
		}}
		p := pipeline.New(testStore(t), discardLogger(), metrics, pipeline.WithAugmenter(aug, "mock", time.Second))

		a := p.Answer(context.Background(), pipeline.Request{Query: "average temperature"})
		assert.Equal(t, plain.Response, a.Response)
		assert.Equal(t, int32(2), aug.calls.Load())
		assert.Equal(t, 2.0, testutil.ToFloat64(metrics.AugmentRequests.WithLabelValues("mock", "error")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AugmentRequests.WithLabelValues("mock", "fallback")))
	})

	t.Run("timeout falls back", func(t *testing.T) {
		metrics := newTestMetrics()
		aug := &mockAugmenter{fn: func(ctx context.Context, _ int32, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}}
		p := pipeline.New(testStore(t), discardLogger(), metrics, pipeline.WithAugmenter(aug, "slow", 20*time.Millisecond))

		a := p.Answer(context.Background(), pipeline.Request{Query: "max salinity"})
		assert.Contains(t, a.Response, "The maximum salinity")
		assert.Equal(t, 2.0, testutil.ToFloat64(metrics.AugmentRequests.WithLabelValues("slow", "timeout")))
	})

	t.Run("panic and blank are swallowed", func(t *testing.T) {
		aug := &mockAugmenter{fn: func(_ context.Context, call int32, _ string) (string, error) {
			if call == 1 {
				panic("bad provider")
			}
			return "   ", nil
		}}
		p := pipeline.New(testStore(t), discardLogger(), newTestMetrics(), pipeline.WithAugmenter(aug, "mock", time.Second))

		a := p.Answer(context.Background(), pipeline.Request{Query: "average temperature"})
		assert.Contains(t, a.Response, "The average temperature")
	})

	t.Run("rate limit skips augmentation", func(t *testing.T) {
		metrics := newTestMetrics()
		aug := &mockAugmenter{fn: func(_ context.Context, _ int32, text string) (string, error) {
			return "Friendly: " + text, nil
		}}
		p := pipeline.New(testStore(t), discardLogger(), metrics,
			pipeline.WithAugmenter(aug, "mock", time.Second),
			pipeline.WithAugmentRateLimit(0.001, 1),
		)

		first := p.Answer(context.Background(), pipeline.Request{Query: "average temperature"})
		second := p.Answer(context.Background(), pipeline.Request{Query: "average temperature"})
		assert.Contains(t, first.Response, "Friendly:")
		assert.NotContains(t, second.Response, "Friendly:")
		assert.Equal(t, int32(1), aug.calls.Load())
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AugmentRequests.WithLabelValues("mock", "rate_limited")))
	})

	t.Run("no-data answers are not augmented", func(t *testing.T) {
		aug := &mockAugmenter{fn: func(context.Context, int32, string) (string, error) { return "x", nil }}
		p := pipeline.New(testStore(t), discardLogger(), newTestMetrics(), pipeline.WithAugmenter(aug, "mock", time.Second))

		p.Answer(context.Background(), pipeline.Request{Query: "temperature at 9999m"})
		assert.Equal(t, int32(0), aug.calls.Load())
	})
}

func TestAnswer_History(t *testing.T) {
	rec := &memRecorder{}
	p := pipeline.New(testStore(t), discardLogger(), newTestMetrics(), pipeline.WithHistory(rec))

	a := p.Answer(context.Background(), pipeline.Request{Query: "max salinity", SessionID: "s-9", UserID: "alice"})
	p.Answer(context.Background(), pipeline.Request{Query: "temperature at 9999m", SessionID: "s-9", UserID: "alice"})

	require.Len(t, rec.recs, 2)
	assert.Equal(t, a.QueryID, rec.recs[0].ID)
	assert.Equal(t, "alice", rec.recs[0].UserID)
	assert.Equal(t, "max salinity", rec.recs[0].Query)
	assert.Equal(t, domain.OperationMax, rec.recs[0].Operation)
	assert.True(t, rec.recs[0].Success)
	assert.False(t, rec.recs[1].Success)
}

func TestAnswer_HistoryFailureIsSilent(t *testing.T) {
	rec := &memRecorder{err: errors.New("db down")}
	p := pipeline.New(testStore(t), discardLogger(), newTestMetrics(), pipeline.WithHistory(rec))

	a := p.Answer(context.Background(), pipeline.Request{Query: "max salinity"})
	assert.Contains(t, a.Response, "maximum salinity")
}

// hangingRecorder blocks until its context ends, like a stalled broker.
type hangingRecorder struct {
	sawDeadline atomic.Bool
	calls       atomic.Int32
}

func (h *hangingRecorder) Append(ctx context.Context, _ domain.HistoryRecord) error {
	h.calls.Add(1)
	_, ok := ctx.Deadline()
	h.sawDeadline.Store(ok)
	<-ctx.Done()
	return ctx.Err()
}

func TestAnswer_HistoryAppendIsBounded(t *testing.T) {
	rec := &hangingRecorder{}
	p := pipeline.New(testStore(t), discardLogger(), newTestMetrics(),
		pipeline.WithHistory(rec),
		pipeline.WithHistoryTimeout(50*time.Millisecond),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	a := p.Answer(ctx, pipeline.Request{Query: "max salinity"})
	assert.Less(t, time.Since(start), 900*time.Millisecond)
	assert.Contains(t, a.Response, "maximum salinity")
	assert.Equal(t, int32(1), rec.calls.Load())
	assert.True(t, rec.sawDeadline.Load())
}

func TestAnswer_WithMemoryHistoryStore(t *testing.T) {
	store := history.NewMemoryStore()
	p := pipeline.New(testStore(t), discardLogger(), newTestMetrics(), pipeline.WithHistory(store))

	a := p.Answer(context.Background(), pipeline.Request{Query: "average salinity", SessionID: "s-1"})
	got, err := store.Get(context.Background(), a.QueryID)
	require.NoError(t, err)
	assert.Equal(t, a.Response, got.Response)
}

func TestAnswer_GeocodedPlace(t *testing.T) {
	geo := &mockGeocoder{result: domain.GeocodingResult{Lat: 14.5, Lon: 86, PlaceName: "Chennai"}}
	p := pipeline.New(testStore(t), discardLogger(), newTestMetrics(), pipeline.WithGeocoder(geo))

	a := p.Answer(context.Background(), pipeline.Request{Query: "average temperature near Chennai"})
	require.NotNil(t, a.Data)
	assert.True(t, a.Data.Success)
	assert.Equal(t, 1, a.Data.Metadata.NProfiles)
	assert.Equal(t, "area around Chennai", a.Data.Metadata.Region)
}

func TestAnswer_StoreUnavailable(t *testing.T) {
	metrics := newTestMetrics()
	p := pipeline.New(nil, discardLogger(), metrics)

	a := p.Answer(context.Background(), pipeline.Request{Query: "average temperature"})
	assert.Equal(t, domain.ApologyText, a.Response)
	assert.Nil(t, a.Data)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InternalFaults))
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestAnswer_PanicBecomesApology(t *testing.T) {
	metrics := newTestMetrics()
	rec := &memRecorder{}
	geo := panicGeocoder{}
	p := pipeline.New(testStore(t), discardLogger(), metrics, pipeline.WithGeocoder(geo), pipeline.WithHistory(rec))

	a := p.Answer(context.Background(), pipeline.Request{Query: "temperature near Atlantis", SessionID: "s"})
	assert.Equal(t, domain.ApologyText, a.Response)
	assert.Equal(t, "s", a.SessionID)
	assert.NotEmpty(t, a.QueryID)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.InternalFaults))
	require.Len(t, rec.recs, 1)
	assert.False(t, rec.recs[0].Success)
}

type panicGeocoder struct{}

func (panicGeocoder) ForwardGeocode(context.Context, string) (domain.GeocodingResult, error) {
	panic("geocoder exploded")
}

func TestCheckReadiness(t *testing.T) {
	p := pipeline.New(testStore(t), discardLogger(), newTestMetrics())
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestAnswer_Concurrent(t *testing.T) {
	p := pipeline.New(testStore(t), discardLogger(), newTestMetrics(), pipeline.WithHistory(history.NewMemoryStore()))

	want := p.Answer(context.Background(), pipeline.Request{Query: "max temperature", SessionID: "s"}).Response
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := p.Answer(context.Background(), pipeline.Request{Query: "max temperature", SessionID: "s"})
			assert.Equal(t, want, got.Response)
		}()
	}
	wg.Wait()
}
