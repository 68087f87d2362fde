package review

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schema string

// EnsureSchema applies the review schema. Idempotent; main runs it at boot
// and integration tests run it against throwaway databases.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply review schema: %w", err)
	}
	return nil
}
