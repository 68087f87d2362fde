// Package metrics exposes Prometheus metrics for the review core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the review counters.
type Metrics struct {
	decisionsSealed      *prometheus.CounterVec
	conflictsRejected    prometheus.Counter
	selfApprovalsBlocked prometheus.Counter
	verifyResults        *prometheus.CounterVec
}

// New creates and registers all review metrics.
func New() *Metrics {
	return &Metrics{
		decisionsSealed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sealproof_decisions_sealed_total",
			Help: "Sealed decisions by action and resulting status",
		}, []string{"action", "status"}),
		conflictsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sealproof_decision_conflicts_total",
			Help: "Decision submissions rejected because the review state changed",
		}),
		selfApprovalsBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sealproof_self_approvals_blocked_total",
			Help: "Dual-control resolutions rejected for approver == reviewer",
		}),
		verifyResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sealproof_chain_verifications_total",
			Help: "Chain verification runs by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) DecisionSealed(action, status string) {
	m.decisionsSealed.WithLabelValues(action, status).Inc()
}

func (m *Metrics) ConflictRejected() {
	m.conflictsRejected.Inc()
}

func (m *Metrics) SelfApprovalBlocked() {
	m.selfApprovalsBlocked.Inc()
}

func (m *Metrics) VerifyResult(valid bool) {
	outcome := "valid"
	if !valid {
		outcome = "integrity_mismatch"
	}
	m.verifyResults.WithLabelValues(outcome).Inc()
}
