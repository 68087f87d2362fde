//go:build integration

package review_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealproof/internal/hashchain"
	"sealproof/internal/review"
	"sealproof/pkg/domain"
	"sealproof/pkg/platform/sentinel"
	"sealproof/pkg/testutil/containers"
)

func newDecision(t *testing.T, checkItemID domain.CheckItemID, previousHash string, createdAt time.Time) *review.Decision {
	t.Helper()

	content := []byte(`{"check_item_id":"` + checkItemID.String() + `","at":"` + createdAt.Format(time.RFC3339) + `"}`)
	return &review.Decision{
		ID:           domain.NewDecisionID(),
		CheckItemID:  checkItemID,
		TenantID:     domain.TenantID(uuid.New()),
		Action:       review.ActionApprove,
		ReviewerID:   domain.UserID(uuid.New()),
		Status:       review.StatusApproved,
		EvidenceHash: hashchain.Seal(content, previousHash),
		PreviousHash: previousHash,
		ContentBytes: content,
		CreatedAt:    createdAt.UTC().Truncate(time.Microsecond),
	}
}

func TestPostgresStoreIntegration(t *testing.T) {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)
	require.NoError(t, review.EnsureSchema(ctx, pg.DB))
	store := review.NewPostgres(pg.DB)

	t.Run("review state is created on first read", func(t *testing.T) {
		id := domain.CheckItemID(uuid.New())

		state, err := store.ReviewState(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, review.StatusNew, state.Status)
		assert.Equal(t, int64(0), state.Version)
	})

	t.Run("advance state bumps version and rejects stale writers", func(t *testing.T) {
		id := domain.CheckItemID(uuid.New())
		_, err := store.ReviewState(ctx, id)
		require.NoError(t, err)

		require.NoError(t, store.AdvanceState(ctx, id, review.StatusInReview, 0))

		state, err := store.ReviewState(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, review.StatusInReview, state.Status)
		assert.Equal(t, int64(1), state.Version)

		err = store.AdvanceState(ctx, id, review.StatusApproved, 0)
		require.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("head hash follows the appended chain", func(t *testing.T) {
		id := domain.CheckItemID(uuid.New())

		head, err := store.HeadHash(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, hashchain.GenesisPreviousHash, head)

		first := newDecision(t, id, hashchain.GenesisPreviousHash, time.Now())
		require.NoError(t, store.AppendDecision(ctx, first))

		head, err = store.HeadHash(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, first.EvidenceHash, head)

		second := newDecision(t, id, head, time.Now().Add(time.Second))
		require.NoError(t, store.AppendDecision(ctx, second))

		head, err = store.HeadHash(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, second.EvidenceHash, head)
	})

	t.Run("list returns decisions in creation order", func(t *testing.T) {
		id := domain.CheckItemID(uuid.New())
		base := time.Now()

		first := newDecision(t, id, hashchain.GenesisPreviousHash, base)
		second := newDecision(t, id, first.EvidenceHash, base.Add(time.Second))
		require.NoError(t, store.AppendDecision(ctx, first))
		require.NoError(t, store.AppendDecision(ctx, second))

		got, err := store.ListByCheckItem(ctx, id)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, first.ID, got[0].ID)
		assert.Equal(t, second.ID, got[1].ID)
		assert.Equal(t, first.ContentBytes, got[0].ContentBytes)
	})

	t.Run("get decision round trips and misses map to not found", func(t *testing.T) {
		id := domain.CheckItemID(uuid.New())
		d := newDecision(t, id, hashchain.GenesisPreviousHash, time.Now())
		require.NoError(t, store.AppendDecision(ctx, d))

		got, err := store.GetDecision(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, d.EvidenceHash, got.EvidenceHash)
		assert.Equal(t, d.ReviewerID, got.ReviewerID)

		_, err = store.GetDecision(ctx, domain.NewDecisionID())
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("duplicate evidence hash is a conflict", func(t *testing.T) {
		id := domain.CheckItemID(uuid.New())
		d := newDecision(t, id, hashchain.GenesisPreviousHash, time.Now())
		require.NoError(t, store.AppendDecision(ctx, d))

		dup := newDecision(t, id, hashchain.GenesisPreviousHash, time.Now())
		dup.EvidenceHash = d.EvidenceHash
		err := store.AppendDecision(ctx, dup)
		require.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("decisions reject update and delete at the storage boundary", func(t *testing.T) {
		id := domain.CheckItemID(uuid.New())
		d := newDecision(t, id, hashchain.GenesisPreviousHash, time.Now())
		require.NoError(t, store.AppendDecision(ctx, d))

		_, err := pg.DB.ExecContext(ctx, "UPDATE decisions SET action = 'reject' WHERE id = $1", d.ID.String())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "append-only")

		_, err = pg.DB.ExecContext(ctx, "DELETE FROM decisions WHERE id = $1", d.ID.String())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "append-only")
	})
}
