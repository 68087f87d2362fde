package review

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sealproof/internal/audit"
	"sealproof/internal/hashchain"
	"sealproof/pkg/domain"
	dErrors "sealproof/pkg/domain-errors"
	"sealproof/pkg/requestcontext"
)

// VerifyMetrics receives chain verification outcomes.
type VerifyMetrics interface {
	VerifyResult(valid bool)
}

// Verifier recomputes a check item's full decision chain on demand. It only
// reads: a detected mismatch is reported for human investigation, never
// repaired. The chain stays exactly as it was found.
type Verifier struct {
	store   Store
	metrics VerifyMetrics
	auditor AuditEmitter
	tracer  trace.Tracer
}

func NewVerifier(store Store, metrics VerifyMetrics, auditor AuditEmitter) *Verifier {
	return &Verifier{
		store:   store,
		metrics: metrics,
		auditor: auditor,
		tracer:  otel.Tracer("sealproof/review"),
	}
}

// VerifyChain checks every decision of the item: the hash recomputed from the
// stored content must match the stored evidence hash, and the stored previous
// hash must match the recomputed hash of the prior entry. Comparing against
// the recomputed prior hash (not the stored one) makes a tampered entry
// poison every later link. Entries are reported individually rather than
// failing fast so one bad link is localized.
func (v *Verifier) VerifyChain(ctx context.Context, checkItemID domain.CheckItemID) (*VerifyReport, error) {
	ctx, span := v.tracer.Start(ctx, "VerifyChain",
		trace.WithAttributes(attribute.String("check_item_id", checkItemID.String())))
	defer span.End()

	if checkItemID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "check_item_id is required")
	}

	decisions, err := v.store.ListByCheckItem(ctx, checkItemID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "chain load failed")
	}

	report := &VerifyReport{CheckItemID: checkItemID, Valid: true, Entries: make([]VerifyEntry, 0, len(decisions))}
	priorRecomputed := hashchain.GenesisPreviousHash
	for _, d := range decisions {
		recomputed := hashchain.Seal(d.ContentBytes, d.PreviousHash)
		entry := VerifyEntry{
			DecisionID: d.ID,
			HashValid:  recomputed == d.EvidenceHash,
			ChainValid: d.PreviousHash == priorRecomputed,
		}
		if !entry.HashValid || !entry.ChainValid {
			report.Valid = false
		}
		report.Entries = append(report.Entries, entry)
		priorRecomputed = recomputed
	}

	if v.metrics != nil {
		v.metrics.VerifyResult(report.Valid)
	}
	if v.auditor != nil {
		outcome := "valid"
		if !report.Valid {
			outcome = "integrity_mismatch"
		}
		v.auditor.Enqueue(audit.Event{
			Category:    audit.CategoryCompliance,
			Action:      audit.EventChainVerified,
			CheckItemID: checkItemID.String(),
			Outcome:     outcome,
			RequestID:   requestcontext.RequestID(ctx),
		})
	}
	return report, nil
}
