package main

import (
	"context"
	"database/sql"
	"time"

	"sealproof/internal/review"
	dErrors "sealproof/pkg/domain-errors"
	"sealproof/pkg/platform/tx"
)

const defaultReviewTxTimeout = 5 * time.Second

// reviewPostgresTx runs decision writes in one database transaction. The
// transaction rides in the context, so every store call inside fn executes
// against it and the per-item row lock holds until commit.
type reviewPostgresTx struct {
	db      *sql.DB
	store   *review.PostgresStore
	timeout time.Duration
}

func newReviewPostgresTx(db *sql.DB, store *review.PostgresStore) *reviewPostgresTx {
	return &reviewPostgresTx{db: db, store: store}
}

func (t *reviewPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, store review.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultReviewTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, sqlTx), t.store); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return err
	}
	return nil
}
