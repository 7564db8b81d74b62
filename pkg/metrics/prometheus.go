// Package metrics provides Prometheus metrics for the IDA toolkit.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the toolkit.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Analysis metrics
	analyses         *prometheus.CounterVec
	analysisErrors   *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	rowsProcessed    *prometheus.CounterVec
	lastRunUnix      *prometheus.GaugeVec

	// Rendering metrics
	renders        *prometheus.CounterVec
	renderFailures *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ida",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.analyses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "analyses_total",
		Help:        "Total number of completed analyses",
		ConstLabels: m.constLabels,
	}, []string{"analysis"})

	m.analysisErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "analysis_errors_total",
		Help:        "Total number of analyses rejected, by error kind",
		ConstLabels: m.constLabels,
	}, []string{"analysis", "kind"})

	m.analysisDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "analysis_duration_milliseconds",
		Help:        "Wall time of an analysis including inline rendering",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"analysis"})

	m.rowsProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rows_processed_total",
		Help:        "Total number of dataset rows consumed by analyses",
		ConstLabels: m.constLabels,
	}, []string{"analysis"})

	m.lastRunUnix = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "analysis_last_run_unix",
		Help:        "Unix time of the last completed analysis",
		ConstLabels: m.constLabels,
	}, []string{"analysis"})

	m.renders = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "renders_total",
		Help:        "Total number of plots rendered",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.renderFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "render_failures_total",
		Help:        "Total number of plots that failed to render (swallowed)",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_type_total",
		Help:        "Total number of errors by type and severity",
		ConstLabels: m.constLabels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "Total number of errors by endpoint",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "error_type"})
}

// Analysis Metrics Functions.

// RecordAnalysis records one completed analysis over rows rows.
func RecordAnalysis(analysis string, rows int, elapsed time.Duration) {
	globalManager.analyses.WithLabelValues(analysis).Inc()
	globalManager.rowsProcessed.WithLabelValues(analysis).Add(float64(rows))
	globalManager.analysisDuration.WithLabelValues(analysis).Observe(float64(elapsed) / float64(time.Millisecond))
	globalManager.lastRunUnix.WithLabelValues(analysis).Set(float64(time.Now().Unix()))
}

// RecordAnalysisError records an analysis rejected with an error of kind.
func RecordAnalysisError(analysis, kind string) {
	globalManager.analysisErrors.WithLabelValues(analysis, kind).Inc()
}

// Rendering Metrics Functions.

// RecordRender increments the rendered plot counter.
func RecordRender(kind string) {
	globalManager.renders.WithLabelValues(kind).Inc()
}

// RecordRenderFailure increments the swallowed render failure counter.
func RecordRenderFailure(kind string) {
	globalManager.renderFailures.WithLabelValues(kind).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request with endpoint, method, and status code.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile dumps the registry in the node-exporter textfile format so
// one-shot CLI runs can still be scraped.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteTextfile, err)
	}
	return nil
}
