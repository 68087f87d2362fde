package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealproof/pkg/requestcontext"
)

// buildChain seals n decisions for one check item through the real service
// so the stored chain is exactly what production writes.
func buildChain(t *testing.T, n int) (*fixture, []*Decision) {
	t.Helper()
	f := newFixture(t, "5000000.00")

	decisions := make([]*Decision, 0, n)
	for i := 0; i < n; i++ {
		req := approveReq(f, int64(i))
		if i < n-1 {
			req.Action = ActionHold
		}
		ctx := requestcontext.WithTime(context.Background(),
			time.Date(2026, 3, 14, 9, 0, i, 0, time.UTC))
		d, err := f.service.CreateDecision(ctx, req)
		require.NoError(t, err)
		decisions = append(decisions, d)
	}
	return f, decisions
}

func TestVerifyChain(t *testing.T) {
	t.Run("intact chain verifies", func(t *testing.T) {
		f, decisions := buildChain(t, 3)
		verifier := NewVerifier(f.store, nil, nil)

		report, err := verifier.VerifyChain(context.Background(), f.item.ID)
		require.NoError(t, err)
		assert.True(t, report.Valid)
		require.Len(t, report.Entries, 3)
		for i, entry := range report.Entries {
			assert.Equal(t, decisions[i].ID, entry.DecisionID)
			assert.True(t, entry.HashValid, i)
			assert.True(t, entry.ChainValid, i)
		}
	})

	t.Run("empty chain is valid", func(t *testing.T) {
		f := newFixture(t, "5000.00")
		verifier := NewVerifier(f.store, nil, nil)

		report, err := verifier.VerifyChain(context.Background(), f.item.ID)
		require.NoError(t, err)
		assert.True(t, report.Valid)
		assert.Empty(t, report.Entries)
	})

	t.Run("tampered middle entry is localized and poisons successors", func(t *testing.T) {
		f, decisions := buildChain(t, 3)
		f.store.TamperContent(decisions[1].ID, []byte(`{"decision":{"action":"approve","notes":"doctored"}}`))

		verifier := NewVerifier(f.store, nil, nil)
		report, err := verifier.VerifyChain(context.Background(), f.item.ID)
		require.NoError(t, err)

		assert.False(t, report.Valid)
		require.Len(t, report.Entries, 3)

		assert.True(t, report.Entries[0].HashValid)
		assert.True(t, report.Entries[0].ChainValid)

		assert.False(t, report.Entries[1].HashValid)
		assert.True(t, report.Entries[1].ChainValid)

		// Entry 2 stores an honest hash over honest content, but it links to
		// what entry 1 should recompute to, which no longer matches.
		assert.True(t, report.Entries[2].HashValid)
		assert.False(t, report.Entries[2].ChainValid)
	})

	t.Run("tampered genesis poisons the whole chain", func(t *testing.T) {
		f, decisions := buildChain(t, 2)
		f.store.TamperContent(decisions[0].ID, []byte(`{}`))

		verifier := NewVerifier(f.store, nil, nil)
		report, err := verifier.VerifyChain(context.Background(), f.item.ID)
		require.NoError(t, err)

		assert.False(t, report.Valid)
		assert.False(t, report.Entries[0].HashValid)
		assert.True(t, report.Entries[0].ChainValid)
		assert.False(t, report.Entries[1].ChainValid)
	})
}
