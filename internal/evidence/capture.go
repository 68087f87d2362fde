package evidence

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"sealproof/internal/canonical"
	"sealproof/internal/hashchain"
	"sealproof/pkg/domain"
	dErrors "sealproof/pkg/domain-errors"
)

const gatherTimeout = 5 * time.Second

// PolicyReader fetches the policy engine's evaluation for a check item.
// The rules themselves are a collaborator; only the result is consumed here.
type PolicyReader interface {
	Evaluate(ctx context.Context, checkItemID domain.CheckItemID, action string) (PolicyResult, error)
}

// AIReader fetches the advisory risk context. A miss is not an error for the
// capturer: AI context is optional evidence.
type AIReader interface {
	RiskContext(ctx context.Context, checkItemID domain.CheckItemID) (*AIContext, error)
}

// Metrics receives per-source gather latencies.
type Metrics interface {
	ObserveGatherLatency(source string, d time.Duration)
}

// Capturer assembles decision-time evidence and seals it. Persistence is the
// review service's job; the capturer stays pure of storage so it can be
// exercised inside the decision transaction.
type Capturer struct {
	policy  PolicyReader
	ai      AIReader
	metrics Metrics
	logger  *slog.Logger
}

func NewCapturer(policy PolicyReader, ai AIReader, metrics Metrics, logger *slog.Logger) *Capturer {
	return &Capturer{policy: policy, ai: ai, metrics: metrics, logger: logger}
}

// Gathered holds collaborator outputs collected before sealing.
type Gathered struct {
	Policy PolicyResult
	AI     *AIContext
}

// Gather fans out to the policy engine and the AI service with shared
// cancellation. Policy failure aborts the capture; AI absence does not.
func (c *Capturer) Gather(ctx context.Context, checkItemID domain.CheckItemID, action string) (*Gathered, error) {
	ctx, cancel := context.WithTimeout(ctx, gatherTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	gathered := &Gathered{}

	g.Go(func() error {
		start := time.Now()
		result, err := c.policy.Evaluate(ctx, checkItemID, action)
		if c.metrics != nil {
			c.metrics.ObserveGatherLatency("policy", time.Since(start))
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "policy evaluation failed")
		}
		gathered.Policy = result
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		aiCtx, err := c.ai.RiskContext(ctx, checkItemID)
		if c.metrics != nil {
			c.metrics.ObserveGatherLatency("ai", time.Since(start))
		}
		if err != nil {
			// Advisory only: record the miss and seal without it.
			if c.logger != nil {
				c.logger.DebugContext(ctx, "ai risk context unavailable",
					"check_item_id", checkItemID.String(),
					"error", err.Error(),
				)
			}
			return nil
		}
		gathered.AI = aiCtx
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return gathered, nil
}

// Seal assembles the snapshot from gathered evidence and chains it onto
// previousHash. Pure: no I/O, so it can run inside the decision transaction
// after the transaction has read the current chain head.
func (c *Capturer) Seal(
	check CheckContext,
	decision DecisionContext,
	gathered *Gathered,
	previousHash string,
	now time.Time,
) (*Snapshot, error) {
	snap := &Snapshot{
		Check:           check,
		Policy:          gathered.Policy,
		AI:              gathered.AI,
		Decision:        decision,
		PreviousHash:    previousHash,
		SealTimestamp:   now,
		SnapshotVersion: canonical.ContractV1,
	}
	content, err := snap.ContentBytes()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "snapshot canonicalization failed")
	}
	snap.EvidenceHash = hashchain.Seal(content, previousHash)
	return snap, nil
}
