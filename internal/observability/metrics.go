package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "float_query"

// Metrics holds the Prometheus counters, histograms, and gauges for the query service.
type Metrics struct {
	QueriesTotal   *prometheus.CounterVec   // labels: operation, outcome={answered,no_data,fault}
	QueryDuration  *prometheus.HistogramVec // labels: operation
	NoDataTotal    prometheus.Counter
	InternalFaults prometheus.Counter

	// Augmentation metrics.
	AugmentRequests *prometheus.CounterVec   // labels: provider, outcome={success,error,timeout,empty,fallback}
	AugmentDuration *prometheus.HistogramVec // labels: provider

	// History metrics.
	HistoryAppends *prometheus.CounterVec // labels: sink, outcome={success,error}
	HistoryPruned  prometheus.Counter

	// Profile store.
	ProfilesLoaded prometheus.Gauge
	ProfilesActive prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={forward}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward}
	GeocodeEnabled     prometheus.Gauge
}

func buildMetrics() *Metrics {
	return &Metrics{
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries answered, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "End-to-end query duration including augmentation.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		NoDataTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "no_data_total",
			Help:      "Queries whose aggregation matched no samples.",
		}),
		InternalFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "internal_faults_total",
			Help:      "Queries that hit an internal fault and returned the apology.",
		}),
		AugmentRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "augment_requests_total",
			Help:      "LLM augmentation attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		AugmentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "augment_duration_seconds",
			Help:      "LLM augmentation call duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"provider"}),
		HistoryAppends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_appends_total",
			Help:      "Session history writes by sink and outcome.",
		}, []string{"sink", "outcome"}),
		HistoryPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_pruned_total",
			Help:      "History records removed by the retention janitor.",
		}),
		ProfilesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "profiles_loaded",
			Help:      "Number of profiles in the store.",
		}),
		ProfilesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "profiles_active",
			Help:      "Number of active profiles in the store.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when place geocoding is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.QueriesTotal,
		m.QueryDuration,
		m.NoDataTotal,
		m.InternalFaults,
		m.AugmentRequests,
		m.AugmentDuration,
		m.HistoryAppends,
		m.HistoryPruned,
		m.ProfilesLoaded,
		m.ProfilesActive,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := buildMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := buildMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
