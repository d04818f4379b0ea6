package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openautomata/windrive/internal/shared/types"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive    prometheus.Gauge
	SessionsCreated   prometheus.Counter
	SessionsDestroyed prometheus.Counter

	// Refresh metrics
	RefreshTotal    *prometheus.CounterVec
	RefreshDuration prometheus.Histogram

	// Resolution metrics, labeled by the tier that produced the element
	ResolutionsTotal *prometheus.CounterVec

	// Activation metrics
	ActivationsTotal *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector backed by its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		startTime: time.Now(),
		registry:  registry,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "windrive_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "windrive_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "windrive_sessions_active",
				Help: "Number of live sessions",
			},
		),
		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "windrive_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		SessionsDestroyed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "windrive_sessions_destroyed_total",
				Help: "Total number of sessions destroyed",
			},
		),

		RefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "windrive_refresh_total",
				Help: "Total number of tree refresh cycles by outcome",
			},
			[]string{"outcome"},
		),
		RefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "windrive_refresh_duration_seconds",
				Help:    "Tree collection duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),

		ResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "windrive_resolutions_total",
				Help: "Total number of element resolutions by path and status",
			},
			[]string{"path", "status"},
		),

		ActivationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "windrive_activations_total",
				Help: "Total number of app activation runs by result",
			},
			[]string{"result"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "windrive_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// Handler exposes the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRefresh records one refresh cycle
func (m *Metrics) RecordRefresh(outcome string, elapsed time.Duration) {
	m.RefreshTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.RefreshDuration.Observe(elapsed.Seconds())
	}
}

// RecordResolution records one element resolution attempt
func (m *Metrics) RecordResolution(path types.ResolutionPath, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.ResolutionsTotal.WithLabelValues(string(path), status).Inc()
}

// RecordActivation records one activation run
func (m *Metrics) RecordActivation(result string) {
	m.ActivationsTotal.WithLabelValues(result).Inc()
}

// SetSessionsActive sets the live session gauge
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))
}

// IncSessionsCreated increments the created sessions counter
func (m *Metrics) IncSessionsCreated() {
	m.SessionsCreated.Inc()
}

// IncSessionsDestroyed increments the destroyed sessions counter
func (m *Metrics) IncSessionsDestroyed() {
	m.SessionsDestroyed.Inc()
}
