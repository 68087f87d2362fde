// Package review owns the decision state machine and the sealed decision
// chain. Every transition passes through evidence capture; a decision row
// and its sealed snapshot are written together or not at all.
package review

import (
	"time"

	"sealproof/internal/evidence"
	"sealproof/pkg/domain"
	dErrors "sealproof/pkg/domain-errors"
)

// Status is the check item's position in the review graph.
type Status string

const (
	StatusNew                Status = "NEW"
	StatusInReview           Status = "IN_REVIEW"
	StatusApproved           Status = "APPROVED"
	StatusReturned           Status = "RETURNED"
	StatusRejected           Status = "REJECTED"
	StatusEscalated          Status = "ESCALATED"
	StatusPendingDualControl Status = "PENDING_DUAL_CONTROL"
)

// Terminal reports whether no further decisions may be recorded from s.
// ESCALATED routes to a different review queue and is terminal to this core.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusReturned, StatusRejected, StatusEscalated:
		return true
	}
	return false
}

// ParseStatus validates a stored status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNew, StatusInReview, StatusApproved, StatusReturned,
		StatusRejected, StatusEscalated, StatusPendingDualControl:
		return Status(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown status %q", s)
}

// Action is the closed set of reviewer submissions. The transition boundary
// switches over it exhaustively so a new action is a compile-time-visible
// change.
type Action string

const (
	ActionApprove  Action = "approve"
	ActionReturn   Action = "return"
	ActionReject   Action = "reject"
	ActionHold     Action = "hold"
	ActionEscalate Action = "escalate"
)

// ParseAction validates a submitted action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionApprove, ActionReturn, ActionReject, ActionHold, ActionEscalate:
		return Action(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown action %q", s)
}

// nextStatus resolves the transition graph for a reviewer submission.
// Dual-control upgrade of an approval happens after this in the service,
// once triggers have been evaluated against gathered evidence.
//
// A stale or terminal current state yields ErrConflict semantics: the caller
// acted on state that no longer exists and must refresh.
func nextStatus(current Status, action Action) (Status, error) {
	if current.Terminal() {
		return "", dErrors.Newf(dErrors.CodeConflict, "check item is %s; no further decisions accepted", current)
	}
	switch action {
	case ActionApprove:
		if current == StatusNew || current == StatusInReview {
			return StatusApproved, nil
		}
	case ActionReturn:
		if current == StatusNew || current == StatusInReview || current == StatusPendingDualControl {
			return StatusReturned, nil
		}
	case ActionReject:
		if current == StatusNew || current == StatusInReview || current == StatusPendingDualControl {
			return StatusRejected, nil
		}
	case ActionHold:
		if current == StatusNew || current == StatusInReview {
			return StatusInReview, nil
		}
	case ActionEscalate:
		if current == StatusInReview || current == StatusPendingDualControl {
			return StatusEscalated, nil
		}
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown action %q", action)
	}
	return "", dErrors.Newf(dErrors.CodeConflict, "action %q is not valid while %s", action, current)
}

// CheckItem is the read model consumed from the CRUD collaborator. This core
// references it; it never owns or mutates it.
type CheckItem struct {
	ID          domain.CheckItemID
	TenantID    domain.TenantID
	Amount      domain.Amount
	RiskLevel   string
	ImageHashes map[string]string
}

// ReviewState is this core's record of where a check item sits in the review
// graph. Version implements optimistic concurrency: every appended decision
// increments it, and submissions based on a stale version are refused.
type ReviewState struct {
	CheckItemID domain.CheckItemID
	Status      Status
	Version     int64
	UpdatedAt   time.Time
}

// Decision is one sealed, immutable link in a check item's chain.
// ContentBytes holds the canonical snapshot content exactly as hashed, so
// the chain verifier recomputes from what was stored, not from a re-assembly.
type Decision struct {
	ID           domain.DecisionID
	CheckItemID  domain.CheckItemID
	TenantID     domain.TenantID
	Action       Action
	ReviewerID   domain.UserID
	ApproverID   *domain.UserID
	Status       Status
	EvidenceHash string
	PreviousHash string
	ContentBytes []byte
	Snapshot     *evidence.Snapshot
	CreatedAt    time.Time
}

// CreateDecisionRequest is a reviewer submission. BasedOnVersion is the
// review-state version the caller last read; a mismatch is a conflict, never
// a silent merge.
type CreateDecisionRequest struct {
	CheckItemID           domain.CheckItemID
	Action                Action
	ReviewerID            domain.UserID
	Notes                 string
	ReasonCodes           []string
	OverrideJustification string
	OverrideCategory      string
	BasedOnVersion        int64
}

// DualControlRequest resolves a pending dual-control approval.
type DualControlRequest struct {
	DecisionID domain.DecisionID
	ApproverID domain.UserID
	Approve    bool
	Notes      string
}

// VerifyEntry is the per-decision result of a chain verification.
type VerifyEntry struct {
	DecisionID domain.DecisionID `json:"decision_id"`
	HashValid  bool              `json:"hash_valid"`
	ChainValid bool              `json:"chain_valid"`
}

// VerifyReport is the full chain verification result. Entries are reported
// individually so one tampered link is localized instead of hiding the rest.
type VerifyReport struct {
	CheckItemID domain.CheckItemID `json:"check_item_id"`
	Valid       bool               `json:"valid"`
	Entries     []VerifyEntry      `json:"entries"`
}
