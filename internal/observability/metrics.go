package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "order_geomap"

// Metrics holds the Prometheus counters, histograms, and gauges for the order map pipeline.
type Metrics struct {
	RowsIngested    prometheus.Counter
	RowsDropped     prometheus.Counter
	OrdersProduced  *prometheus.CounterVec // labels: proximity={near,far}
	PipelineRuns    *prometheus.CounterVec // labels: outcome={success,error}
	PipelineRunning prometheus.Gauge
	RunDuration     prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,no_match,error}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeRetries     prometheus.Counter
	GeocodeAPIDuration prometheus.Histogram

	// Sink metrics.
	OrdersPublished prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsIngested,
		m.RowsDropped,
		m.OrdersProduced,
		m.PipelineRuns,
		m.PipelineRunning,
		m.RunDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeRetries,
		m.GeocodeAPIDuration,
		m.OrdersPublished,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_ingested_total",
			Help:      "Total order sheet rows handed to the pipeline.",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows dropped because their shipping zip could not be resolved.",
		}),
		OrdersProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Aggregated orders by proximity classification.",
		}, []string{"proximity"}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "Number of pipeline runs currently in progress.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Duration of a complete geocode-aggregate-classify run.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding provider requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by result.",
		}, []string{"result"}),
		GeocodeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_retries_total",
			Help:      "Geocoding attempts beyond the first for a single code.",
		}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		OrdersPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_published_total",
			Help:      "Classified orders written to the Kafka sink topic.",
		}),
	}
}
