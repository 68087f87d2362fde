// Package checkitem is this core's read surface over the check processing
// pipeline: the item under review and the advisory AI context recorded for
// it. Both are written upstream; this service only reads them at decision
// time.
package checkitem

import (
	"context"

	"sealproof/internal/evidence"
	"sealproof/internal/review"
	"sealproof/pkg/domain"
)

// Store reads check items and their advisory context.
//
// Error contract: ErrNotFound when the item does not exist; AI context
// absence is a nil result, not an error.
type Store interface {
	GetCheckItem(ctx context.Context, id domain.CheckItemID) (*review.CheckItem, error)
	RiskContext(ctx context.Context, id domain.CheckItemID) (*evidence.AIContext, error)
}
