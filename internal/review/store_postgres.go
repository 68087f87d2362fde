package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sealproof/internal/hashchain"
	"sealproof/pkg/domain"
	"sealproof/pkg/platform/sentinel"
	"sealproof/pkg/platform/tx"
)

// PostgresStore persists review states and the append-only decision chain in
// PostgreSQL. When a transaction rides in the context (pkg/platform/tx) the
// store executes against it; that is how the decision and its snapshot
// commit as one unit.
//
// Serialization point: ReviewState issues SELECT ... FOR UPDATE inside a
// transaction, so concurrent decision submissions against the same check
// item queue on the row and exactly one observes the current version.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) ReviewState(ctx context.Context, checkItemID domain.CheckItemID) (*ReviewState, error) {
	q := s.q(ctx)
	query := `SELECT check_item_id, status, version, updated_at FROM review_states WHERE check_item_id = $1`
	if _, inTx := tx.From(ctx); inTx {
		query += ` FOR UPDATE`
	}

	state, err := scanState(q.QueryRowContext(ctx, query, uuid.UUID(checkItemID)))
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load review state: %w", err)
	}

	// First sight of this item: seed the NEW state. A concurrent seeder may
	// win; fall back to reading the row it inserted.
	_, err = q.ExecContext(ctx,
		`INSERT INTO review_states (check_item_id, status, version, updated_at)
		 VALUES ($1, $2, 0, now())
		 ON CONFLICT (check_item_id) DO NOTHING`,
		uuid.UUID(checkItemID), string(StatusNew))
	if err != nil {
		return nil, fmt.Errorf("seed review state: %w", err)
	}
	state, err = scanState(q.QueryRowContext(ctx, query, uuid.UUID(checkItemID)))
	if err != nil {
		return nil, fmt.Errorf("load review state after seed: %w", err)
	}
	return state, nil
}

func scanState(row *sql.Row) (*ReviewState, error) {
	var (
		id      uuid.UUID
		status  string
		version int64
		updated time.Time
	)
	if err := row.Scan(&id, &status, &version, &updated); err != nil {
		return nil, err
	}
	parsed, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return &ReviewState{
		CheckItemID: domain.CheckItemID(id),
		Status:      parsed,
		Version:     version,
		UpdatedAt:   updated,
	}, nil
}

func (s *PostgresStore) AdvanceState(ctx context.Context, checkItemID domain.CheckItemID, next Status, expectedVersion int64) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE review_states
		 SET status = $1, version = version + 1, updated_at = now()
		 WHERE check_item_id = $2 AND version = $3`,
		string(next), uuid.UUID(checkItemID), expectedVersion)
	if err != nil {
		return fmt.Errorf("advance review state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance review state: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("version %d is stale: %w", expectedVersion, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) HeadHash(ctx context.Context, checkItemID domain.CheckItemID) (string, error) {
	var head string
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT evidence_hash FROM decisions
		 WHERE check_item_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		uuid.UUID(checkItemID)).Scan(&head)
	if errors.Is(err, sql.ErrNoRows) {
		return hashchain.GenesisPreviousHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("load chain head: %w", err)
	}
	return head, nil
}

func (s *PostgresStore) AppendDecision(ctx context.Context, d *Decision) error {
	var approver any
	if d.ApproverID != nil {
		approver = uuid.UUID(*d.ApproverID)
	}
	var previous any
	if d.PreviousHash != hashchain.GenesisPreviousHash {
		previous = d.PreviousHash
	}
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO decisions
		 (id, check_item_id, tenant_id, action, reviewer_id, approver_id,
		  status, evidence_hash, previous_hash, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(d.ID), uuid.UUID(d.CheckItemID), uuid.UUID(d.TenantID),
		string(d.Action), uuid.UUID(d.ReviewerID), approver,
		string(d.Status), d.EvidenceHash, previous, d.ContentBytes, d.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("decision %s: %w", d.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("append decision: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDecision(ctx context.Context, id domain.DecisionID) (*Decision, error) {
	rows, err := s.q(ctx).QueryContext(ctx, decisionSelect+` WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return nil, fmt.Errorf("load decision: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("load decision: %w", err)
		}
		return nil, fmt.Errorf("decision %s: %w", id, sentinel.ErrNotFound)
	}
	return scanDecision(rows)
}

func (s *PostgresStore) ListByCheckItem(ctx context.Context, checkItemID domain.CheckItemID) ([]*Decision, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		decisionSelect+` WHERE check_item_id = $1 ORDER BY created_at ASC, id ASC`,
		uuid.UUID(checkItemID))
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []*Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	return out, nil
}

const decisionSelect = `SELECT id, check_item_id, tenant_id, action, reviewer_id, approver_id,
 status, evidence_hash, previous_hash, content, created_at FROM decisions`

func scanDecision(rows *sql.Rows) (*Decision, error) {
	var (
		id, checkItemID, tenantID, reviewerID uuid.UUID
		approverID                            uuid.NullUUID
		action, status, evidenceHash          string
		previousHash                          sql.NullString
		content                               []byte
		createdAt                             time.Time
	)
	if err := rows.Scan(&id, &checkItemID, &tenantID, &action, &reviewerID, &approverID,
		&status, &evidenceHash, &previousHash, &content, &createdAt); err != nil {
		return nil, fmt.Errorf("scan decision: %w", err)
	}
	parsedStatus, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	parsedAction, err := ParseAction(action)
	if err != nil {
		return nil, err
	}
	d := &Decision{
		ID:           domain.DecisionID(id),
		CheckItemID:  domain.CheckItemID(checkItemID),
		TenantID:     domain.TenantID(tenantID),
		Action:       parsedAction,
		ReviewerID:   domain.UserID(reviewerID),
		Status:       parsedStatus,
		EvidenceHash: evidenceHash,
		PreviousHash: previousHash.String,
		ContentBytes: content,
		CreatedAt:    createdAt,
	}
	if approverID.Valid {
		a := domain.UserID(approverID.UUID)
		d.ApproverID = &a
	}
	return d, nil
}
