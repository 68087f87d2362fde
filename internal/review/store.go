package review

import (
	"context"

	"sealproof/pkg/domain"
)

// Store persists review states and the append-only decision chain.
//
// Error contract (sentinel errors at this boundary):
// - ErrNotFound when the requested entity does not exist
// - ErrConflict when an optimistic version check fails
// - wrapped infrastructure errors otherwise
//
// Decisions are append-only: no update or delete exists on this interface,
// and the postgres schema rejects both at the storage boundary.
type Store interface {
	// ReviewState returns the current state for a check item, creating the
	// NEW state on first sight so every item has a versioned row.
	ReviewState(ctx context.Context, checkItemID domain.CheckItemID) (*ReviewState, error)

	// AdvanceState moves the state to next if the stored version still equals
	// expectedVersion; returns ErrConflict otherwise.
	AdvanceState(ctx context.Context, checkItemID domain.CheckItemID, next Status, expectedVersion int64) error

	// HeadHash returns the latest decision's evidence hash for a check item,
	// or hashchain.GenesisPreviousHash when no decision exists.
	HeadHash(ctx context.Context, checkItemID domain.CheckItemID) (string, error)

	// AppendDecision appends one sealed decision to the chain.
	AppendDecision(ctx context.Context, d *Decision) error

	// GetDecision loads a single decision by id.
	GetDecision(ctx context.Context, id domain.DecisionID) (*Decision, error)

	// ListByCheckItem returns all decisions for an item ordered by creation.
	ListByCheckItem(ctx context.Context, checkItemID domain.CheckItemID) ([]*Decision, error)
}

// TxRunner executes fn against a Store bound to one atomic transaction.
// A decision and its sealed snapshot are written inside a single run so a
// Decision row never exists without its snapshot. The ctx handed to fn
// carries the transaction (pkg/platform/tx); store calls inside fn must use
// it, not the outer one.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// CheckItemReader fetches the check item read state from the CRUD
// collaborator.
type CheckItemReader interface {
	GetCheckItem(ctx context.Context, id domain.CheckItemID) (*CheckItem, error)
}
