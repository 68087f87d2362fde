package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-level Prometheus metrics. Feature packages carry
// their own metric sets; this one only sees the transport.
type Metrics struct {
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
}

// New creates and registers the HTTP metrics.
func New() *Metrics {
	return &Metrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sealproof_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		requestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sealproof_http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
	}
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, method, status string, elapsed time.Duration) {
	m.requestDuration.WithLabelValues(route, method, status).Observe(elapsed.Seconds())
}

// RequestStarted and RequestFinished track the in-flight gauge.
func (m *Metrics) RequestStarted()  { m.requestsInFlight.Inc() }
func (m *Metrics) RequestFinished() { m.requestsInFlight.Dec() }
