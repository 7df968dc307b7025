package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline and read path.
type Metrics struct {
	CitiesProcessed *prometheus.CounterVec // labels: outcome={success,failed}
	DaysUpserted    prometheus.Counter
	FetchRetries    prometheus.Counter
	FetchDuration   prometheus.Histogram
	RunDuration     prometheus.Histogram
	IngestRunning   prometheus.Gauge
	LastRunSuccess  prometheus.Gauge // unix timestamp of the last run with >=1 success

	StatsCache *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.CitiesProcessed,
		m.DaysUpserted,
		m.FetchRetries,
		m.FetchDuration,
		m.RunDuration,
		m.IngestRunning,
		m.LastRunSuccess,
		m.StatsCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CitiesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_weather",
			Name:      "cities_processed_total",
			Help:      "Cities processed per ingestion run, by outcome.",
		}, []string{"outcome"}),
		DaysUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_weather",
			Name:      "days_upserted_total",
			Help:      "Total observation days written (inserted or updated).",
		}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "city_weather",
			Name:      "fetch_retries_total",
			Help:      "Weather fetch attempts beyond the first, per city per run.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "city_weather",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a single upstream weather fetch.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "city_weather",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete ingestion run across all cities.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_weather",
			Name:      "ingest_running",
			Help:      "1 while an ingestion run is in flight, 0 otherwise.",
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "city_weather",
			Name:      "last_run_success_timestamp_seconds",
			Help:      "Unix time of the last ingestion run that wrote at least one city.",
		}),
		StatsCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "city_weather",
			Name:      "stats_cache_total",
			Help:      "Stats cache lookups by result.",
		}, []string{"result"}),
	}
}
