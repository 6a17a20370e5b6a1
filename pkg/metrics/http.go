package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request metadata for the API surface.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	streams  prometheus.Gauge
	blocked  *prometheus.CounterVec
}

// NewHTTPMetrics registers the API metrics on the provided registerer.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Completed HTTP requests.",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	streams := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_streams_active",
		Help: "Dashboard event streams currently attached.",
	})
	blocked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_requests_blocked_total",
		Help: "Requests rejected by the bot gate.",
	}, []string{"reason"})
	reg.MustRegister(requests, duration, streams, blocked)
	return &HTTPMetrics{
		requests: requests,
		duration: duration,
		streams:  streams,
		blocked:  blocked,
	}
}

// ObserveRequest records one completed request.
func (m *HTTPMetrics) ObserveRequest(method, route, status string, elapsed time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(method, normalizeLabel(route), status).Inc()
	m.duration.WithLabelValues(method, normalizeLabel(route)).Observe(elapsed.Seconds())
}

// StreamOpened marks a dashboard stream attach.
func (m *HTTPMetrics) StreamOpened() {
	if m == nil || m.streams == nil {
		return
	}
	m.streams.Inc()
}

// StreamClosed marks a dashboard stream detach.
func (m *HTTPMetrics) StreamClosed() {
	if m == nil || m.streams == nil {
		return
	}
	m.streams.Dec()
}

// IncBotBlocked counts a bot-gate rejection.
func (m *HTTPMetrics) IncBotBlocked(reason string) {
	if m == nil || m.blocked == nil {
		return
	}
	m.blocked.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
