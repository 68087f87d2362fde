package handler

import (
	"strings"

	"sealproof/internal/review"
	"sealproof/pkg/domain"
	dErrors "sealproof/pkg/domain-errors"
	pstrings "sealproof/pkg/platform/strings"
)

// CreateDecisionRequest is the HTTP request body for POST /review/decisions.
// Reviewer identity comes from the authenticated context, never the body.
type CreateDecisionRequest struct {
	CheckItemID           string   `json:"check_item_id"`
	Action                string   `json:"action"`
	Notes                 string   `json:"notes"`
	ReasonCodes           []string `json:"reason_codes"`
	OverrideJustification string   `json:"override_justification"`
	OverrideCategory      string   `json:"override_category"`
	BasedOnVersion        int64    `json:"based_on_version"`

	// Parsed values (populated by Validate)
	parsedCheckItemID domain.CheckItemID
	parsedAction      review.Action
}

// Validate validates and parses the request.
func (r *CreateDecisionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "request body is required")
	}

	if len(r.Notes) > 4000 {
		return dErrors.New(dErrors.CodeValidation, "notes must be at most 4000 characters")
	}
	r.ReasonCodes = pstrings.DedupeAndTrim(r.ReasonCodes)
	if len(r.ReasonCodes) > 32 {
		return dErrors.New(dErrors.CodeValidation, "too many reason codes")
	}

	r.CheckItemID = strings.TrimSpace(r.CheckItemID)
	if r.CheckItemID == "" {
		return dErrors.New(dErrors.CodeValidation, "check_item_id is required")
	}
	checkItemID, err := domain.ParseCheckItemID(r.CheckItemID)
	if err != nil {
		return err
	}
	r.parsedCheckItemID = checkItemID

	action, err := review.ParseAction(strings.TrimSpace(r.Action))
	if err != nil {
		return err
	}
	r.parsedAction = action

	if r.BasedOnVersion < 0 {
		return dErrors.New(dErrors.CodeValidation, "based_on_version must not be negative")
	}

	return nil
}

// ParsedCheckItemID returns the validated check item ID.
func (r *CreateDecisionRequest) ParsedCheckItemID() domain.CheckItemID {
	return r.parsedCheckItemID
}

// ParsedAction returns the validated action.
func (r *CreateDecisionRequest) ParsedAction() review.Action {
	return r.parsedAction
}

// DualControlRequest is the HTTP request body for
// POST /review/decisions/{decisionID}/dual-control. Approver identity comes
// from the authenticated context.
type DualControlRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// Validate validates the request.
func (r *DualControlRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "request body is required")
	}
	if len(r.Notes) > 4000 {
		return dErrors.New(dErrors.CodeValidation, "notes must be at most 4000 characters")
	}
	return nil
}
