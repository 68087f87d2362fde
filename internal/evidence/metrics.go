package evidence

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PromMetrics records evidence-gathering latencies per source.
type PromMetrics struct {
	gatherLatency *prometheus.HistogramVec
}

func NewPromMetrics() *PromMetrics {
	return &PromMetrics{
		gatherLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sealproof_evidence_gather_duration_seconds",
			Help:    "Latency of evidence gathering per collaborator source",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
	}
}

func (m *PromMetrics) ObserveGatherLatency(source string, d time.Duration) {
	m.gatherLatency.WithLabelValues(source).Observe(d.Seconds())
}
