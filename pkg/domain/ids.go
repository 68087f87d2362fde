// Package domain holds shared domain primitives: typed identifiers and the
// fixed-point Amount. IDs are distinct types over uuid.UUID so the compiler
// rejects cross-assignment (a CheckItemID can never be passed where a
// ReviewerID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "sealproof/pkg/domain-errors"
)

type (
	// CheckItemID identifies a presented check under review.
	CheckItemID uuid.UUID
	// DecisionID identifies a sealed decision.
	DecisionID uuid.UUID
	// UserID identifies a reviewer, approver, or token owner.
	UserID uuid.UUID
	// TenantID identifies the owning bank tenant.
	TenantID uuid.UUID
)

func parse(s string, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is required", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is not a valid UUID", kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s must not be the nil UUID", kind)
	}
	return u, nil
}

// ParseCheckItemID validates and returns a CheckItemID.
func ParseCheckItemID(s string) (CheckItemID, error) {
	u, err := parse(s, "check_item_id")
	return CheckItemID(u), err
}

// ParseDecisionID validates and returns a DecisionID.
func ParseDecisionID(s string) (DecisionID, error) {
	u, err := parse(s, "decision_id")
	return DecisionID(u), err
}

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parse(s, "user_id")
	return UserID(u), err
}

// ParseTenantID validates and returns a TenantID.
func ParseTenantID(s string) (TenantID, error) {
	u, err := parse(s, "tenant_id")
	return TenantID(u), err
}

// NewDecisionID mints a fresh decision identifier.
func NewDecisionID() DecisionID { return DecisionID(uuid.New()) }

func (id CheckItemID) String() string { return uuid.UUID(id).String() }
func (id DecisionID) String() string  { return uuid.UUID(id).String() }
func (id UserID) String() string      { return uuid.UUID(id).String() }
func (id TenantID) String() string    { return uuid.UUID(id).String() }

func (id CheckItemID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DecisionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id TenantID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// Named types over uuid.UUID do not inherit its text marshaling, so without
// these every embedded ID would serialize as a raw byte array.
func (id CheckItemID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id DecisionID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id TenantID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }

func (id *CheckItemID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *DecisionID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *TenantID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
