package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ssargent/docport/pkg/archive"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	directionExport = "export"
	directionImport = "import"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Transfer metrics
	transfersTotal       *prometheus.CounterVec
	transferDuration     *prometheus.HistogramVec
	documentsTransferred *prometheus.CounterVec
	archiveSizeBytes     *prometheus.HistogramVec
	collectionsTotal     prometheus.Gauge

	authRequestsTotal *prometheus.CounterVec
	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg. A nil reg
// gets a fresh registry, so separate servers never collide.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docport_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docport_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "docport_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		transfersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docport_transfers_total",
				Help: "Total number of export and import operations",
			},
			[]string{"direction", "format", "status", "error_kind"},
		),

		transferDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docport_transfer_duration_seconds",
				Help:    "Export and import duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"direction"},
		),

		documentsTransferred: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docport_documents_transferred_total",
				Help: "Documents written to archives or read from uploads",
			},
			[]string{"direction"},
		),

		archiveSizeBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docport_archive_size_bytes",
				Help:    "Size of produced archives and received uploads",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
			[]string{"direction"},
		),

		collectionsTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "docport_collections_total",
				Help: "Number of collections in the store",
			},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docport_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		healthChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docport_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordTransfer records one export or import. format may be empty when it
// was never determined.
func (m *Metrics) RecordTransfer(direction, format string, documents, size int, err error, duration time.Duration) {
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	m.transfersTotal.WithLabelValues(direction, format, status, archive.Kind(err)).Inc()
	m.transferDuration.WithLabelValues(direction).Observe(duration.Seconds())
	if err == nil {
		m.documentsTransferred.WithLabelValues(direction).Add(float64(documents))
		m.archiveSizeBytes.WithLabelValues(direction).Observe(float64(size))
	}
}

// UpdateCollections sets the collection count gauge
func (m *Metrics) UpdateCollections(n int) {
	m.collectionsTotal.Set(float64(n))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.healthChecksTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
