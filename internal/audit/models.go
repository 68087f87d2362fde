package audit

import "time"

// Category classifies audit events by their primary purpose, which drives
// retention and routing downstream.
type Category string

const (
	// CategoryCompliance covers events with regulatory significance: sealed
	// decisions, dual-control resolutions. Long retention.
	CategoryCompliance Category = "compliance"

	// CategorySecurity covers events feeding security monitoring: replay
	// rejections, path violations, self-approval attempts.
	CategorySecurity Category = "security"

	// CategoryOperations covers routine activity: token mints and consumes,
	// credential issuance. Short retention, may be sampled.
	CategoryOperations Category = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category    Category  `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	CheckItemID string    `json:"check_item_id,omitempty"`
	DecisionID  string    `json:"decision_id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	TenantID    string    `json:"tenant_id,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	Client      string    `json:"client,omitempty"` // calling software, from the User-Agent header
}

// Action names for the events this core emits.
const (
	EventDecisionSealed      = "decision_sealed"
	EventDualControlResolved = "dual_control_resolved"
	EventSelfApprovalBlocked = "self_approval_blocked"
	EventChainVerified       = "chain_verified"
	EventImageTokenMinted    = "image_token_minted"
	EventImageTokenConsumed  = "image_token_consumed"
	EventCredentialIssued    = "credential_issued"
	EventCredentialRejected  = "credential_rejected"
	EventReplayDetected      = "replay_detected"
	EventPathRejected        = "path_rejected"
)
