package imagetoken

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PromMetrics counts token mints and consume outcomes.
type PromMetrics struct {
	minted   prometheus.Counter
	consumed *prometheus.CounterVec
}

func NewPromMetrics() *PromMetrics {
	return &PromMetrics{
		minted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sealproof_image_tokens_minted_total",
			Help: "Image access tokens minted",
		}),
		consumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sealproof_image_tokens_consumed_total",
			Help: "Image token consume attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *PromMetrics) TokenMinted() {
	m.minted.Inc()
}

func (m *PromMetrics) TokenConsumed(outcome string) {
	m.consumed.WithLabelValues(outcome).Inc()
}
