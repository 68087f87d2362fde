package connector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PromMetrics tracks credential issuance and validation outcomes.
type PromMetrics struct {
	issued    prometheus.Counter
	validated *prometheus.CounterVec
}

func NewPromMetrics() *PromMetrics {
	return &PromMetrics{
		issued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sealproof_connector_credentials_issued_total",
			Help: "Connector credentials minted.",
		}),
		validated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sealproof_connector_credentials_validated_total",
			Help: "Connector credential validation attempts by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *PromMetrics) CredentialIssued() {
	m.issued.Inc()
}

func (m *PromMetrics) CredentialValidated(outcome string) {
	m.validated.WithLabelValues(outcome).Inc()
}
