// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application. An instance
// is created in main and handed to the components that record into it.
type Metrics struct {
	// Collector metrics
	WhaleEventsRecorded *prometheus.CounterVec
	PriceTicksRecorded  prometheus.Counter
	EventBufferSize     prometheus.Gauge
	StreamReconnects    prometheus.Counter

	// Analysis metrics
	AnalysesRun       *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	IntervalsDetected prometheus.Counter

	// API metrics
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryErrors *prometheus.CounterVec

	// Health metrics
	LastSuccessfulFlush    prometheus.Gauge
	LastSuccessfulAnalysis prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered
// on the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "whale_activity_lab"
	}

	return &Metrics{
		WhaleEventsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "whale_events_recorded_total",
			Help:      "Total number of whale events recorded by event type",
		}, []string{"event_type"}),
		PriceTicksRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "price_ticks_recorded_total",
			Help:      "Total number of price ticks recorded",
		}),
		EventBufferSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "event_buffer_size",
			Help:      "Current number of events waiting to be flushed",
		}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "stream_reconnects_total",
			Help:      "Total number of WebSocket reconnect attempts",
		}),

		AnalysesRun: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by status",
		}, []string{"status"}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Analysis run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		IntervalsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "intervals_detected_total",
			Help:      "Total number of price-change intervals detected",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "status"}),
		HTTPRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_latency_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulFlush: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_flush_timestamp",
			Help:      "Unix timestamp of the last successful storage flush",
		}),
		LastSuccessfulAnalysis: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_analysis_timestamp",
			Help:      "Unix timestamp of the last successful analysis run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
