// internal/obs/metrics.go
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the console's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec

	recoveryTotal *prometheus.CounterVec
	navigation    *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "console_http_in_flight_requests",
			Help: "In-flight HTTP requests served by the console.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_http_requests_total",
			Help: "Total number of HTTP requests served by the console.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_http_request_duration_seconds",
			Help:    "Console HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		upstreamRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_upstream_requests_total",
			Help: "Requests sent to the admin API.",
		}, []string{"client", "method", "status"}),
		upstreamRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_upstream_request_duration_seconds",
			Help:    "Admin API latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"client", "method"}),
		recoveryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_unauthorized_recovery_total",
			Help: "Outcomes of refresh-and-replay after a 401.",
		}, []string{"client", "outcome"}),
		navigation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_navigation_decisions_total",
			Help: "Navigation targets chosen by the session lifecycle resolver.",
		}, []string{"target"}),
	}
	m.registry.MustRegister(
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
		m.upstreamRequestsTotal, m.upstreamRequestDuration,
		m.recoveryTotal, m.navigation,
	)
	return m
}

// Handler exposes the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveUpstream records one call to the admin API. status is 0 for
// transport failures.
func (m *Metrics) ObserveUpstream(client, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequestsTotal.WithLabelValues(client, method, strconv.Itoa(status)).Inc()
	m.upstreamRequestDuration.WithLabelValues(client, method).Observe(d.Seconds())
}

// ObserveRecovery records the terminal state of a 401 recovery.
func (m *Metrics) ObserveRecovery(client, outcome string) {
	if m == nil {
		return
	}
	m.recoveryTotal.WithLabelValues(client, outcome).Inc()
}

// ObserveNavigation records a resolver decision.
func (m *Metrics) ObserveNavigation(target string) {
	if m == nil {
		return
	}
	m.navigation.WithLabelValues(target).Inc()
}

// Instrument measures requests served by the gin engine.
func (m *Metrics) Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		m.httpInFlight.Inc()
		start := time.Now()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		m.httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.httpInFlight.Dec()
	}
}
