// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	registrations *prometheus.CounterVec
	attendance    *prometheus.CounterVec
	feedErrors    prometheus.Counter
}

// New registers all collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "absensi_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "absensi_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "absensi_user_registrations_total",
			Help: "User registration attempts by outcome.",
		}, []string{"outcome"}),
		attendance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "absensi_attendance_records_total",
			Help: "Stored attendance records by derived status.",
		}, []string{"status"}),
		feedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "absensi_feed_publish_errors_total",
			Help: "Attendance feed messages that could not be published.",
		}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.registrations, m.attendance, m.feedErrors,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route, code string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, code).Inc()
	m.duration.WithLabelValues(method, route).Observe(seconds)
}

// ObserveRegistration counts a registration outcome: created, conflict or error.
func (m *Metrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

// ObserveAttendance counts a stored attendance record.
func (m *Metrics) ObserveAttendance(status string) {
	if m == nil {
		return
	}
	m.attendance.WithLabelValues(status).Inc()
}

// FeedPublishFailed counts a dropped feed message.
func (m *Metrics) FeedPublishFailed() {
	if m == nil {
		return
	}
	m.feedErrors.Inc()
}
