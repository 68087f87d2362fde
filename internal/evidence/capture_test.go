package evidence

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealproof/internal/hashchain"
	"sealproof/pkg/domain"
)

type fakePolicy struct {
	result PolicyResult
	err    error
}

func (f *fakePolicy) Evaluate(context.Context, domain.CheckItemID, string) (PolicyResult, error) {
	return f.result, f.err
}

type fakeAI struct {
	ctx *AIContext
	err error
}

func (f *fakeAI) RiskContext(context.Context, domain.CheckItemID) (*AIContext, error) {
	return f.ctx, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCheck() CheckContext {
	return CheckContext{
		CheckItemID: domain.CheckItemID(uuid.New()),
		TenantID:    domain.TenantID(uuid.New()),
		Amount:      domain.Amount(1500000),
		RiskLevel:   "high",
		ImageHashes: map[string]string{"front": "sha256:ab12", "back": "sha256:cd34"},
	}
}

func testDecision() DecisionContext {
	return DecisionContext{
		Action:      "approve",
		ReviewerID:  domain.UserID(uuid.New()),
		Notes:       "payee matches endorsement",
		ReasonCodes: []string{"R01"},
	}
}

func TestCapturerGather(t *testing.T) {
	policy := PolicyResult{PolicyVersion: "pol-7", RulesTriggered: []string{"amount_gate"}, RiskScore: 40}

	t.Run("collects policy and ai", func(t *testing.T) {
		ai := &AIContext{ModelID: "risk-v3", Recommendation: "return", ConfidenceBasis: 8700}
		c := NewCapturer(&fakePolicy{result: policy}, &fakeAI{ctx: ai}, nil, discardLogger())

		gathered, err := c.Gather(context.Background(), domain.CheckItemID(uuid.New()), "approve")
		require.NoError(t, err)
		assert.Equal(t, policy, gathered.Policy)
		assert.Equal(t, ai, gathered.AI)
	})

	t.Run("ai unavailability is not fatal", func(t *testing.T) {
		c := NewCapturer(&fakePolicy{result: policy}, &fakeAI{err: errors.New("inference down")}, nil, discardLogger())

		gathered, err := c.Gather(context.Background(), domain.CheckItemID(uuid.New()), "approve")
		require.NoError(t, err)
		assert.Nil(t, gathered.AI)
		assert.Equal(t, policy, gathered.Policy)
	})

	t.Run("policy failure aborts the capture", func(t *testing.T) {
		c := NewCapturer(&fakePolicy{err: errors.New("engine down")}, &fakeAI{}, nil, discardLogger())

		_, err := c.Gather(context.Background(), domain.CheckItemID(uuid.New()), "approve")
		require.Error(t, err)
	})
}

func TestCapturerSeal(t *testing.T) {
	c := NewCapturer(&fakePolicy{}, &fakeAI{}, nil, discardLogger())
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	gathered := &Gathered{Policy: PolicyResult{PolicyVersion: "pol-7"}}

	t.Run("hash reproduces over content bytes", func(t *testing.T) {
		snap, err := c.Seal(testCheck(), testDecision(), gathered, hashchain.GenesisPreviousHash, now)
		require.NoError(t, err)

		content, err := snap.ContentBytes()
		require.NoError(t, err)
		assert.Equal(t, hashchain.Seal(content, snap.PreviousHash), snap.EvidenceHash)
	})

	t.Run("seal fields are excluded from hashed content", func(t *testing.T) {
		snap, err := c.Seal(testCheck(), testDecision(), gathered, hashchain.GenesisPreviousHash, now)
		require.NoError(t, err)
		before, err := snap.ContentBytes()
		require.NoError(t, err)

		// Tampering with any seal field must not change the content bytes.
		snap.EvidenceHash = "sha256:0000"
		snap.PreviousHash = "sha256:ffff"
		snap.SealTimestamp = now.Add(time.Hour)
		after, err := snap.ContentBytes()
		require.NoError(t, err)
		assert.Equal(t, string(before), string(after))
	})

	t.Run("chained snapshots link previous hash", func(t *testing.T) {
		first, err := c.Seal(testCheck(), testDecision(), gathered, hashchain.GenesisPreviousHash, now)
		require.NoError(t, err)
		second, err := c.Seal(testCheck(), testDecision(), gathered, first.EvidenceHash, now.Add(time.Minute))
		require.NoError(t, err)

		assert.Equal(t, first.EvidenceHash, second.PreviousHash)
		assert.NotEqual(t, first.EvidenceHash, second.EvidenceHash)
	})

	t.Run("override fields enter the hashed content", func(t *testing.T) {
		dec := testDecision()
		plain, err := c.Seal(testCheck(), dec, gathered, "", now)
		require.NoError(t, err)

		dec.OverrideJustification = "payee verified by phone"
		dec.OverrideCategory = "manual_verification"
		overridden, err := c.Seal(testCheck(), dec, gathered, "", now)
		require.NoError(t, err)

		plainContent, _ := plain.ContentBytes()
		overriddenContent, _ := overridden.ContentBytes()
		assert.NotEqual(t, string(plainContent), string(overriddenContent))
	})
}

func TestSnapshotExport(t *testing.T) {
	c := NewCapturer(&fakePolicy{}, &fakeAI{}, nil, discardLogger())
	now := time.Date(2026, 3, 14, 9, 0, 0, 589_000_000, time.UTC)
	snap, err := c.Seal(testCheck(), testDecision(), &Gathered{}, "", now)
	require.NoError(t, err)

	env := snap.Export()
	assert.Equal(t, "sealproof.canonical.v1", env.SnapshotVersion)
	assert.Equal(t, snap.EvidenceHash, env.EvidenceHash)
	assert.Equal(t, "2026-03-14T09:00:00.589Z", env.SealTimestamp)
	assert.Contains(t, env.Content, "check")
	assert.NotContains(t, env.Content, "evidence_hash")
	assert.NotContains(t, env.Content, "seal_timestamp")
}
