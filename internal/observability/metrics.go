package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storm_guidance"

// Metrics holds the Prometheus counters, histograms, and gauges for the guidance service.
type Metrics struct {
	// Answer dispatch metrics.
	Asks               *prometheus.CounterVec // labels: provider={preferred,fallback}, outcome={success,error}
	AskDuration        *prometheus.HistogramVec
	PreferredAvailable prometheus.Gauge

	// Streaming metrics.
	StreamChunks     *prometheus.CounterVec // labels: mode={passthrough,replay}
	StreamsAbandoned prometheus.Counter
	SessionsOpened   prometheus.Counter

	// Tips metrics.
	TipsServed prometheus.Histogram

	// Region locator metrics.
	RegionLookups     *prometheus.CounterVec // labels: outcome={success,error,empty}
	RegionCache       *prometheus.CounterVec // labels: result={hit,miss}
	RegionAPIDuration prometheus.Histogram

	// Journal metrics.
	JournalRecorded  prometheus.Counter
	JournalDropped   prometheus.Counter
	JournalPublished prometheus.Counter
	JournalErrors    prometheus.Counter
	JournalBatchSize prometheus.Histogram
	JournalRunning   prometheus.Gauge
}

// NewMetrics creates and registers all guidance metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Asks,
		m.AskDuration,
		m.PreferredAvailable,
		m.StreamChunks,
		m.StreamsAbandoned,
		m.SessionsOpened,
		m.TipsServed,
		m.RegionLookups,
		m.RegionCache,
		m.RegionAPIDuration,
		m.JournalRecorded,
		m.JournalDropped,
		m.JournalPublished,
		m.JournalErrors,
		m.JournalBatchSize,
		m.JournalRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Asks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asks_total",
			Help:      "Questions answered by provider and outcome.",
		}, []string{"provider", "outcome"}),
		AskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ask_duration_seconds",
			Help:      "Time to produce a complete answer, by provider.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		PreferredAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "preferred_provider_available",
			Help:      "1 when the preferred provider reported itself available on the last call, 0 otherwise.",
		}),
		StreamChunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_chunks_total",
			Help:      "Chunks delivered to streaming consumers, by mode.",
		}, []string{"mode"}),
		StreamsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_abandoned_total",
			Help:      "Streams stopped early by the consumer or by cancellation.",
		}),
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Conversation sessions opened with the preferred provider.",
		}),
		TipsServed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tips_served",
			Help:      "Number of tips returned per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),
		RegionLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_lookups_total",
			Help:      "Region locator requests by outcome.",
		}, []string{"outcome"}),
		RegionCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_cache_total",
			Help:      "Region locator cache lookups by result.",
		}, []string{"result"}),
		RegionAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "region_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		JournalRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_recorded_total",
			Help:      "Conversation messages accepted by the journal.",
		}),
		JournalDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_dropped_total",
			Help:      "Conversation messages dropped because the journal buffer was full.",
		}),
		JournalPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_published_total",
			Help:      "Conversation messages written to the journal sink.",
		}),
		JournalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_errors_total",
			Help:      "Failed journal batch writes.",
		}),
		JournalBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "journal_batch_size",
			Help:      "Number of messages per journal batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		JournalRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "journal_running",
			Help:      "1 when the journal loop is active, 0 when shut down.",
		}),
	}
}
