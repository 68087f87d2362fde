package review

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealproof/internal/evidence"
	"sealproof/pkg/domain"
	dErrors "sealproof/pkg/domain-errors"
	"sealproof/pkg/platform/sentinel"
	"sealproof/pkg/requestcontext"
)

type fakeItems struct {
	items map[domain.CheckItemID]*CheckItem
}

func (f *fakeItems) GetCheckItem(_ context.Context, id domain.CheckItemID) (*CheckItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("check item %s: %w", id, sentinel.ErrNotFound)
	}
	return item, nil
}

type fakePolicy struct {
	result evidence.PolicyResult
	err    error
}

func (f *fakePolicy) Evaluate(context.Context, domain.CheckItemID, string) (evidence.PolicyResult, error) {
	return f.result, f.err
}

type fakeAI struct {
	ctx *evidence.AIContext
	err error
}

func (f *fakeAI) RiskContext(context.Context, domain.CheckItemID) (*evidence.AIContext, error) {
	return f.ctx, f.err
}

type fixture struct {
	service *Service
	store   *InMemoryStore
	item    *CheckItem
	policy  *fakePolicy
	ai      *fakeAI
}

func newFixture(t *testing.T, threshold string) *fixture {
	t.Helper()
	amount, err := domain.ParseAmount("1200.00")
	require.NoError(t, err)
	item := &CheckItem{
		ID:          domain.CheckItemID(uuid.New()),
		TenantID:    domain.TenantID(uuid.New()),
		Amount:      amount,
		RiskLevel:   "medium",
		ImageHashes: map[string]string{"front": "sha256:11", "back": "sha256:22"},
	}

	policy := &fakePolicy{result: evidence.PolicyResult{PolicyVersion: "pol-7"}}
	ai := &fakeAI{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	capturer := evidence.NewCapturer(policy, ai, nil, logger)

	store := NewInMemoryStore()
	limit, err := domain.ParseAmount(threshold)
	require.NoError(t, err)
	service := NewService(
		Config{DualControlThreshold: limit},
		&fakeItems{items: map[domain.CheckItemID]*CheckItem{item.ID: item}},
		capturer,
		NewInMemoryTxRunner(store),
		store,
		nil, nil, logger,
	)
	return &fixture{service: service, store: store, item: item, policy: policy, ai: ai}
}

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(),
		time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
}

func approveReq(f *fixture, version int64) CreateDecisionRequest {
	return CreateDecisionRequest{
		CheckItemID:    f.item.ID,
		Action:         ActionApprove,
		ReviewerID:     domain.UserID(uuid.New()),
		Notes:          "signature matches",
		ReasonCodes:    []string{"SIG_OK"},
		BasedOnVersion: version,
	}
}

func TestCreateDecision(t *testing.T) {
	t.Run("approve below threshold seals APPROVED", func(t *testing.T) {
		f := newFixture(t, "5000.00")
		d, err := f.service.CreateDecision(testCtx(), approveReq(f, 0))
		require.NoError(t, err)

		assert.Equal(t, StatusApproved, d.Status)
		assert.NotEmpty(t, d.EvidenceHash)
		assert.Empty(t, d.PreviousHash)
		require.NotNil(t, d.Snapshot)

		state, err := f.store.ReviewState(context.Background(), f.item.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, state.Status)
		assert.Equal(t, int64(1), state.Version)
	})

	t.Run("amount at threshold forces dual control", func(t *testing.T) {
		f := newFixture(t, "5000.00")
		bigAmount, err := domain.ParseAmount("15000.00")
		require.NoError(t, err)
		f.item.Amount = bigAmount

		d, err := f.service.CreateDecision(testCtx(), approveReq(f, 0))
		require.NoError(t, err)
		assert.Equal(t, StatusPendingDualControl, d.Status)
	})

	t.Run("policy flag forces dual control", func(t *testing.T) {
		f := newFixture(t, "5000.00")
		f.policy.result.DualControlRequired = true

		d, err := f.service.CreateDecision(testCtx(), approveReq(f, 0))
		require.NoError(t, err)
		assert.Equal(t, StatusPendingDualControl, d.Status)
	})

	t.Run("return and reject do not trigger dual control", func(t *testing.T) {
		f := newFixture(t, "5000.00")
		bigAmount, err := domain.ParseAmount("15000.00")
		require.NoError(t, err)
		f.item.Amount = bigAmount

		req := approveReq(f, 0)
		req.Action = ActionReturn
		d, err := f.service.CreateDecision(testCtx(), req)
		require.NoError(t, err)
		assert.Equal(t, StatusReturned, d.Status)
	})

	t.Run("override against AI return requires justification", func(t *testing.T) {
		f := newFixture(t, "500000.00")
		f.ai.ctx = &evidence.AIContext{ModelID: "risk-v3", Recommendation: "return", ConfidenceBasis: 9100}

		_, err := f.service.CreateDecision(testCtx(), approveReq(f, 0))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		req := approveReq(f, 0)
		req.OverrideJustification = "payee verified by phone with account holder"
		req.OverrideCategory = "manual_verification"
		d, err := f.service.CreateDecision(testCtx(), req)
		require.NoError(t, err)
		assert.Equal(t, StatusPendingDualControl, d.Status)

		content := d.Snapshot.ContentMap()
		decision := content["decision"].(map[string]any)
		assert.Equal(t, "manual_verification", decision["override_category"])
	})

	t.Run("decisions chain by previous hash", func(t *testing.T) {
		f := newFixture(t, "5000.00")

		hold := approveReq(f, 0)
		hold.Action = ActionHold
		first, err := f.service.CreateDecision(testCtx(), hold)
		require.NoError(t, err)

		second, err := f.service.CreateDecision(testCtx(), approveReq(f, 1))
		require.NoError(t, err)

		assert.Empty(t, first.PreviousHash)
		assert.Equal(t, first.EvidenceHash, second.PreviousHash)
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		f := newFixture(t, "5000.00")
		hold := approveReq(f, 0)
		hold.Action = ActionHold
		_, err := f.service.CreateDecision(testCtx(), hold)
		require.NoError(t, err)

		_, err = f.service.CreateDecision(testCtx(), approveReq(f, 0))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("terminal state refuses further decisions", func(t *testing.T) {
		f := newFixture(t, "5000.00")
		_, err := f.service.CreateDecision(testCtx(), approveReq(f, 0))
		require.NoError(t, err)

		_, err = f.service.CreateDecision(testCtx(), approveReq(f, 1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("unknown check item", func(t *testing.T) {
		f := newFixture(t, "5000.00")
		req := approveReq(f, 0)
		req.CheckItemID = domain.CheckItemID(uuid.New())
		_, err := f.service.CreateDecision(testCtx(), req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("concurrent submissions: exactly one wins", func(t *testing.T) {
		f := newFixture(t, "5000.00")

		const racers = 8
		var wg sync.WaitGroup
		errs := make([]error, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.service.CreateDecision(testCtx(), approveReq(f, 0))
			}(i)
		}
		wg.Wait()

		wins, conflicts := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, wins)
		assert.Equal(t, racers-1, conflicts)

		chain, err := f.store.ListByCheckItem(context.Background(), f.item.ID)
		require.NoError(t, err)
		assert.Len(t, chain, 1)
	})
}

func TestApproveDualControl(t *testing.T) {
	pending := func(t *testing.T, f *fixture) *Decision {
		t.Helper()
		bigAmount, err := domain.ParseAmount("15000.00")
		require.NoError(t, err)
		f.item.Amount = bigAmount
		d, err := f.service.CreateDecision(testCtx(), approveReq(f, 0))
		require.NoError(t, err)
		require.Equal(t, StatusPendingDualControl, d.Status)
		return d
	}

	t.Run("self-approval always fails", func(t *testing.T) {
		f := newFixture(t, "5000.00")
		d := pending(t, f)

		_, err := f.service.ApproveDualControl(testCtx(), DualControlRequest{
			DecisionID: d.ID,
			ApproverID: d.ReviewerID,
			Approve:    true,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodePermission))
	})

	t.Run("distinct approver approves", func(t *testing.T) {
		f := newFixture(t, "5000.00")
		d := pending(t, f)
		approver := domain.UserID(uuid.New())

		resolved, err := f.service.ApproveDualControl(testCtx(), DualControlRequest{
			DecisionID: d.ID,
			ApproverID: approver,
			Approve:    true,
			Notes:      "amount confirmed against remittance",
		})
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, resolved.Status)
		require.NotNil(t, resolved.ApproverID)
		assert.Equal(t, approver, *resolved.ApproverID)
		assert.Equal(t, d.EvidenceHash, resolved.PreviousHash)

		content := resolved.Snapshot.ContentMap()
		decision := content["decision"].(map[string]any)
		assert.Equal(t, approver.String(), decision["approver_id"])
	})

	t.Run("approver rejection returns item to review", func(t *testing.T) {
		f := newFixture(t, "5000.00")
		d := pending(t, f)

		resolved, err := f.service.ApproveDualControl(testCtx(), DualControlRequest{
			DecisionID: d.ID,
			ApproverID: domain.UserID(uuid.New()),
			Approve:    false,
			Notes:      "endorsement unclear, re-review",
		})
		require.NoError(t, err)
		assert.Equal(t, StatusInReview, resolved.Status)

		state, err := f.store.ReviewState(context.Background(), f.item.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusInReview, state.Status)
	})

	t.Run("resolution against non-pending state conflicts", func(t *testing.T) {
		f := newFixture(t, "5000.00")
		d := pending(t, f)
		approver := domain.UserID(uuid.New())

		_, err := f.service.ApproveDualControl(testCtx(), DualControlRequest{
			DecisionID: d.ID, ApproverID: approver, Approve: true,
		})
		require.NoError(t, err)

		_, err = f.service.ApproveDualControl(testCtx(), DualControlRequest{
			DecisionID: d.ID, ApproverID: domain.UserID(uuid.New()), Approve: true,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("unknown decision", func(t *testing.T) {
		f := newFixture(t, "5000.00")
		_, err := f.service.ApproveDualControl(testCtx(), DualControlRequest{
			DecisionID: domain.NewDecisionID(),
			ApproverID: domain.UserID(uuid.New()),
			Approve:    true,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
