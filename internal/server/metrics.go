package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the login endpoint.
type Metrics struct {
	// Handshake outcomes by result: "success" or an error kind
	HandshakeOutcomes *prometheus.CounterVec

	// Full handshake latency by result
	HandshakeDuration *prometheus.HistogramVec

	// HTTP requests by method, route pattern and status
	RequestsTotal *prometheus.CounterVec
}

// NewMetrics creates the service metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HandshakeOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "valauth_handshakes_total",
			Help: "Total login handshakes by outcome",
		}, []string{"outcome"}),

		HandshakeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "valauth_handshake_duration_seconds",
			Help:    "Duration of the full login handshake by outcome",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"outcome"}),

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "valauth_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
	}
}

// ObserveHandshake records one handshake outcome and its duration.
func (m *Metrics) ObserveHandshake(outcome string, d time.Duration) {
	if m != nil {
		m.HandshakeOutcomes.WithLabelValues(outcome).Inc()
		m.HandshakeDuration.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementRequest(method, route, status string) {
	if m != nil {
		m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	}
}
