package checkitem

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sealproof/internal/evidence"
	"sealproof/internal/review"
	"sealproof/pkg/domain"
	"sealproof/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

// EnsureSchema creates the check item tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure checkitem schema: %w", err)
	}
	return nil
}

// PostgresStore reads check items and AI contexts from the pipeline tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetCheckItem(ctx context.Context, id domain.CheckItemID) (*review.CheckItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, amount_minor, risk_level, image_hashes
		 FROM check_items WHERE id = $1`, uuid.UUID(id))

	var (
		itemID, tenantID uuid.UUID
		amountMinor      int64
		riskLevel        string
		imageHashesJSON  []byte
	)
	if err := row.Scan(&itemID, &tenantID, &amountMinor, &riskLevel, &imageHashesJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load check item: %w", err)
	}

	item := &review.CheckItem{
		ID:        domain.CheckItemID(itemID),
		TenantID:  domain.TenantID(tenantID),
		Amount:    domain.Amount(amountMinor),
		RiskLevel: riskLevel,
	}
	if len(imageHashesJSON) > 0 {
		if err := json.Unmarshal(imageHashesJSON, &item.ImageHashes); err != nil {
			return nil, fmt.Errorf("decode image hashes: %w", err)
		}
	}
	return item, nil
}

func (s *PostgresStore) RiskContext(ctx context.Context, id domain.CheckItemID) (*evidence.AIContext, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT model_id, recommendation, flags, confidence_basis
		 FROM check_item_ai_contexts WHERE check_item_id = $1`, uuid.UUID(id))

	var (
		ai        evidence.AIContext
		flagsJSON []byte
	)
	if err := row.Scan(&ai.ModelID, &ai.Recommendation, &flagsJSON, &ai.ConfidenceBasis); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load ai context: %w", err)
	}
	if len(flagsJSON) > 0 {
		if err := json.Unmarshal(flagsJSON, &ai.Flags); err != nil {
			return nil, fmt.Errorf("decode ai flags: %w", err)
		}
	}
	return &ai, nil
}
