// Package evidence captures the decision-time state a reviewer acted on and
// seals it into a tamper-evident snapshot. The snapshot content is hashed
// through the canonical encoding; the seal fields ride alongside and are
// excluded from the hashed bytes; that exclusion is part of the wire
// contract, not an implementation detail.
package evidence

import (
	"time"

	"sealproof/internal/canonical"
	"sealproof/pkg/domain"
)

// CheckContext is the read-only view of the check item at decision time.
// Image content is referenced by hash only; bytes never enter the snapshot.
type CheckContext struct {
	CheckItemID domain.CheckItemID
	TenantID    domain.TenantID
	Amount      domain.Amount
	RiskLevel   string
	ImageHashes map[string]string // side ("front"/"back") -> content digest
}

// PolicyResult is the policy engine's output, consumed as-is.
type PolicyResult struct {
	PolicyVersion       string
	RulesTriggered      []string
	DualControlRequired bool
	RiskScore           int
}

// AIContext is the advisory risk-scoring output. Confidence is carried in
// basis points so no float ever reaches the canonical encoding.
type AIContext struct {
	ModelID         string
	Recommendation  string
	Flags           []string
	ConfidenceBasis int
}

// DecisionContext records what the reviewer submitted. Override fields are
// populated only when the reviewer approved against an AI return
// recommendation.
type DecisionContext struct {
	Action                string
	ReviewerID            domain.UserID
	ApproverID            domain.UserID // set only on dual-control resolutions
	Notes                 string
	ReasonCodes           []string
	OverrideJustification string
	OverrideCategory      string
}

// Snapshot is the sealed evidence record. Content fields are hashed; seal
// fields are not.
type Snapshot struct {
	Check    CheckContext
	Policy   PolicyResult
	AI       *AIContext
	Decision DecisionContext

	// Seal fields, excluded from the hashed content.
	EvidenceHash    string
	PreviousHash    string
	SealTimestamp   time.Time
	SnapshotVersion string
}

// ContentMap assembles the hashed portion of the snapshot as a key-sorted
// canonical record. Absent AI context is omitted entirely, never null.
func (s *Snapshot) ContentMap() map[string]any {
	check := map[string]any{
		"check_item_id": s.Check.CheckItemID.String(),
		"tenant_id":     s.Check.TenantID.String(),
		"amount":        s.Check.Amount,
		"risk_level":    s.Check.RiskLevel,
	}
	if len(s.Check.ImageHashes) > 0 {
		images := map[string]any{}
		for side, digest := range s.Check.ImageHashes {
			images[side] = digest
		}
		check["image_hashes"] = images
	}

	policy := map[string]any{
		"policy_version":        s.Policy.PolicyVersion,
		"rules_triggered":       stringList(s.Policy.RulesTriggered),
		"dual_control_required": s.Policy.DualControlRequired,
		"risk_score":            s.Policy.RiskScore,
	}

	decision := map[string]any{
		"action":       s.Decision.Action,
		"reviewer_id":  s.Decision.ReviewerID.String(),
		"notes":        s.Decision.Notes,
		"reason_codes": stringList(s.Decision.ReasonCodes),
	}
	if !s.Decision.ApproverID.IsNil() {
		decision["approver_id"] = s.Decision.ApproverID.String()
	}
	if s.Decision.OverrideJustification != "" {
		decision["override_justification"] = s.Decision.OverrideJustification
		decision["override_category"] = s.Decision.OverrideCategory
	}

	content := map[string]any{
		"check":    check,
		"policy":   policy,
		"decision": decision,
	}
	if s.AI != nil {
		content["ai"] = map[string]any{
			"model_id":         s.AI.ModelID,
			"recommendation":   s.AI.Recommendation,
			"flags":            stringList(s.AI.Flags),
			"confidence_basis": s.AI.ConfidenceBasis,
		}
	}
	return content
}

// ContentBytes canonicalizes the hashed portion of the snapshot.
func (s *Snapshot) ContentBytes() ([]byte, error) {
	return canonical.Canonicalize(s.ContentMap())
}

// Envelope is the external representation of a sealed snapshot. Seal fields
// are documented as excluded from the hash input; verifiers recompute over
// the content object only.
type Envelope struct {
	SnapshotVersion string         `json:"snapshot_version"`
	EvidenceHash    string         `json:"evidence_hash"`
	PreviousHash    string         `json:"previous_hash,omitempty"`
	SealTimestamp   string         `json:"seal_timestamp"`
	Content         map[string]any `json:"content"`
}

// Export renders the snapshot as its versioned envelope.
func (s *Snapshot) Export() Envelope {
	return Envelope{
		SnapshotVersion: s.SnapshotVersion,
		EvidenceHash:    s.EvidenceHash,
		PreviousHash:    s.PreviousHash,
		SealTimestamp:   canonical.TimeString(s.SealTimestamp),
		Content:         s.ContentMap(),
	}
}

func stringList(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
