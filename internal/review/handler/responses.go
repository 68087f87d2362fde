package handler

import (
	"time"

	"sealproof/internal/review"
)

// DecisionResponse is the HTTP representation of a sealed decision.
type DecisionResponse struct {
	ID           string    `json:"id"`
	CheckItemID  string    `json:"check_item_id"`
	Action       string    `json:"action"`
	Status       string    `json:"status"`
	ReviewerID   string    `json:"reviewer_id"`
	ApproverID   *string   `json:"approver_id,omitempty"`
	EvidenceHash string    `json:"evidence_hash"`
	PreviousHash string    `json:"previous_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// FromDecision converts a domain decision to its HTTP representation. The
// canonical content bytes are deliberately absent: clients get the export
// envelope from the chain endpoint, not from decision writes.
func FromDecision(d *review.Decision) *DecisionResponse {
	resp := &DecisionResponse{
		ID:           d.ID.String(),
		CheckItemID:  d.CheckItemID.String(),
		Action:       string(d.Action),
		Status:       string(d.Status),
		ReviewerID:   d.ReviewerID.String(),
		EvidenceHash: d.EvidenceHash,
		PreviousHash: d.PreviousHash,
		CreatedAt:    d.CreatedAt,
	}
	if d.ApproverID != nil {
		s := d.ApproverID.String()
		resp.ApproverID = &s
	}
	return resp
}

// ListDecisionsResponse is the HTTP response for listing a check item's
// decisions in chain order.
type ListDecisionsResponse struct {
	CheckItemID string              `json:"check_item_id"`
	Decisions   []*DecisionResponse `json:"decisions"`
}

// FromDecisions converts a chain-ordered decision list.
func FromDecisions(checkItemID string, decisions []*review.Decision) *ListDecisionsResponse {
	out := &ListDecisionsResponse{CheckItemID: checkItemID, Decisions: make([]*DecisionResponse, 0, len(decisions))}
	for _, d := range decisions {
		out.Decisions = append(out.Decisions, FromDecision(d))
	}
	return out
}
