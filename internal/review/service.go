package review

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sealproof/internal/audit"
	"sealproof/internal/evidence"
	"sealproof/pkg/domain"
	dErrors "sealproof/pkg/domain-errors"
	"sealproof/pkg/platform/sentinel"
	"sealproof/pkg/requestcontext"
)

// aiReturnRecommendation is the advisory verdict whose override forces dual
// control and a mandatory justification.
const aiReturnRecommendation = "return"

// Config carries the review policy knobs.
type Config struct {
	// DualControlThreshold forces dual control on approvals at or above this
	// amount.
	DualControlThreshold domain.Amount
}

// Metrics receives review outcomes.
type Metrics interface {
	DecisionSealed(action, status string)
	ConflictRejected()
	SelfApprovalBlocked()
}

// AuditEmitter publishes audit events off the request path.
type AuditEmitter interface {
	Enqueue(event audit.Event)
}

// Service drives the decision state machine. Every transition passes through
// evidence capture, and the transition plus its sealed snapshot commit as
// one atomic unit.
type Service struct {
	cfg      Config
	items    CheckItemReader
	capturer *evidence.Capturer
	tx       TxRunner
	store    Store // read path outside transactions
	metrics  Metrics
	auditor  AuditEmitter
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewService(
	cfg Config,
	items CheckItemReader,
	capturer *evidence.Capturer,
	tx TxRunner,
	store Store,
	metrics Metrics,
	auditor AuditEmitter,
	logger *slog.Logger,
) *Service {
	return &Service{
		cfg:      cfg,
		items:    items,
		capturer: capturer,
		tx:       tx,
		store:    store,
		metrics:  metrics,
		auditor:  auditor,
		logger:   logger,
		tracer:   otel.Tracer("sealproof/review"),
	}
}

// CreateDecision records a reviewer submission: gathers evidence, runs the
// state machine, seals the snapshot onto the chain, and persists decision +
// snapshot in one transaction. Concurrent submissions against the same check
// item resolve to exactly one winner; the loser gets a conflict and must
// resubmit against the new state.
func (s *Service) CreateDecision(ctx context.Context, req CreateDecisionRequest) (*Decision, error) {
	ctx, span := s.tracer.Start(ctx, "CreateDecision",
		trace.WithAttributes(attribute.String("check_item_id", req.CheckItemID.String())))
	defer span.End()

	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	item, err := s.items.GetCheckItem(ctx, req.CheckItemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "check item not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check item lookup failed")
	}

	// Collaborator fetches run outside the transaction; only the serialized
	// chain append holds the per-item lock.
	gathered, err := s.capturer.Gather(ctx, req.CheckItemID, string(req.Action))
	if err != nil {
		return nil, err
	}

	override := s.isOverride(req, gathered)
	if override && (req.OverrideJustification == "" || req.OverrideCategory == "") {
		return nil, dErrors.New(dErrors.CodeValidation,
			"approving against an AI return recommendation requires a justification and an override category")
	}

	now := requestcontext.Now(ctx)
	var sealed *Decision
	err = s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		state, err := store.ReviewState(ctx, req.CheckItemID)
		if err != nil {
			return err
		}
		if state.Version != req.BasedOnVersion {
			return sentinel.ErrConflict
		}

		next, err := nextStatus(state.Status, req.Action)
		if err != nil {
			return err
		}
		if req.Action == ActionApprove && s.requiresDualControl(item, gathered, override) {
			next = StatusPendingDualControl
		}

		prev, err := store.HeadHash(ctx, req.CheckItemID)
		if err != nil {
			return err
		}

		snap, err := s.capturer.Seal(
			checkContext(item),
			evidence.DecisionContext{
				Action:                string(req.Action),
				ReviewerID:            req.ReviewerID,
				Notes:                 req.Notes,
				ReasonCodes:           req.ReasonCodes,
				OverrideJustification: req.OverrideJustification,
				OverrideCategory:      req.OverrideCategory,
			},
			gathered, prev, now,
		)
		if err != nil {
			return err
		}
		content, err := snap.ContentBytes()
		if err != nil {
			return err
		}

		sealed = &Decision{
			ID:           domain.NewDecisionID(),
			CheckItemID:  req.CheckItemID,
			TenantID:     item.TenantID,
			Action:       req.Action,
			ReviewerID:   req.ReviewerID,
			Status:       next,
			EvidenceHash: snap.EvidenceHash,
			PreviousHash: snap.PreviousHash,
			ContentBytes: content,
			Snapshot:     snap,
			CreatedAt:    now,
		}
		if err := store.AppendDecision(ctx, sealed); err != nil {
			return err
		}
		return store.AdvanceState(ctx, req.CheckItemID, next, state.Version)
	})
	if err != nil {
		return nil, s.translateTxErr(ctx, err, req.CheckItemID)
	}

	s.observeSealed(ctx, sealed)
	return sealed, nil
}

// ApproveDualControl resolves a pending dual-control decision. The approver
// must differ from the original reviewer; this is evaluated here against the
// stored decision, never against anything the client asserts.
func (s *Service) ApproveDualControl(ctx context.Context, req DualControlRequest) (*Decision, error) {
	ctx, span := s.tracer.Start(ctx, "ApproveDualControl",
		trace.WithAttributes(attribute.String("decision_id", req.DecisionID.String())))
	defer span.End()

	if req.DecisionID.IsNil() || req.ApproverID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "decision_id and approver_id are required")
	}

	original, err := s.store.GetDecision(ctx, req.DecisionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "decision not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decision lookup failed")
	}

	if req.ApproverID == original.ReviewerID {
		if s.metrics != nil {
			s.metrics.SelfApprovalBlocked()
		}
		s.emit(audit.Event{
			Category:    audit.CategorySecurity,
			Action:      audit.EventSelfApprovalBlocked,
			CheckItemID: original.CheckItemID.String(),
			DecisionID:  original.ID.String(),
			UserID:      req.ApproverID.String(),
			RequestID:   requestcontext.RequestID(ctx),
		})
		return nil, dErrors.New(dErrors.CodePermission, "dual-control approver must differ from the original reviewer")
	}

	item, err := s.items.GetCheckItem(ctx, original.CheckItemID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check item lookup failed")
	}
	gathered, err := s.capturer.Gather(ctx, original.CheckItemID, string(original.Action))
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	approver := req.ApproverID
	var sealed *Decision
	err = s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		state, err := store.ReviewState(ctx, original.CheckItemID)
		if err != nil {
			return err
		}
		if state.Status != StatusPendingDualControl {
			return sentinel.ErrConflict
		}

		next := StatusApproved
		if !req.Approve {
			// Approver rejection sends the item back for a fresh review.
			next = StatusInReview
		}

		prev, err := store.HeadHash(ctx, original.CheckItemID)
		if err != nil {
			return err
		}
		snap, err := s.capturer.Seal(
			checkContext(item),
			evidence.DecisionContext{
				Action:     string(original.Action),
				ReviewerID: original.ReviewerID,
				ApproverID: approver,
				Notes:      req.Notes,
			},
			gathered, prev, now,
		)
		if err != nil {
			return err
		}
		content, err := snap.ContentBytes()
		if err != nil {
			return err
		}

		sealed = &Decision{
			ID:           domain.NewDecisionID(),
			CheckItemID:  original.CheckItemID,
			TenantID:     item.TenantID,
			Action:       original.Action,
			ReviewerID:   original.ReviewerID,
			ApproverID:   &approver,
			Status:       next,
			EvidenceHash: snap.EvidenceHash,
			PreviousHash: snap.PreviousHash,
			ContentBytes: content,
			Snapshot:     snap,
			CreatedAt:    now,
		}
		if err := store.AppendDecision(ctx, sealed); err != nil {
			return err
		}
		return store.AdvanceState(ctx, original.CheckItemID, next, state.Version)
	})
	if err != nil {
		return nil, s.translateTxErr(ctx, err, original.CheckItemID)
	}

	if s.metrics != nil {
		s.metrics.DecisionSealed(string(sealed.Action), string(sealed.Status))
	}
	s.emit(audit.Event{
		Category:    audit.CategoryCompliance,
		Action:      audit.EventDualControlResolved,
		CheckItemID: sealed.CheckItemID.String(),
		DecisionID:  sealed.ID.String(),
		UserID:      approver.String(),
		TenantID:    sealed.TenantID.String(),
		Outcome:     string(sealed.Status),
		RequestID:   requestcontext.RequestID(ctx),
	})
	return sealed, nil
}

// ListDecisions returns the sealed chain for a check item, oldest first.
func (s *Service) ListDecisions(ctx context.Context, checkItemID domain.CheckItemID) ([]*Decision, error) {
	if checkItemID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "check_item_id is required")
	}
	decisions, err := s.store.ListByCheckItem(ctx, checkItemID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decision list failed")
	}
	return decisions, nil
}

func (s *Service) validateCreate(req CreateDecisionRequest) error {
	if req.CheckItemID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "check_item_id is required")
	}
	if req.ReviewerID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "reviewer_id is required")
	}
	if _, err := ParseAction(string(req.Action)); err != nil {
		return err
	}
	if req.BasedOnVersion < 0 {
		return dErrors.New(dErrors.CodeValidation, "based_on_version must not be negative")
	}
	return nil
}

func (s *Service) isOverride(req CreateDecisionRequest, gathered *evidence.Gathered) bool {
	return req.Action == ActionApprove &&
		gathered.AI != nil &&
		gathered.AI.Recommendation == aiReturnRecommendation
}

func (s *Service) requiresDualControl(item *CheckItem, gathered *evidence.Gathered, override bool) bool {
	if s.cfg.DualControlThreshold > 0 && item.Amount.GreaterOrEqual(s.cfg.DualControlThreshold) {
		return true
	}
	if gathered.Policy.DualControlRequired {
		return true
	}
	return override
}

func (s *Service) translateTxErr(ctx context.Context, err error, checkItemID domain.CheckItemID) error {
	if errors.Is(err, sentinel.ErrConflict) {
		if s.metrics != nil {
			s.metrics.ConflictRejected()
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "decision submission lost the race",
				"check_item_id", checkItemID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return dErrors.New(dErrors.CodeConflict, "check item state changed; refresh and resubmit")
	}
	if dErrors.CodeOf(err) != dErrors.CodeInternal {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "decision transaction failed")
}

func (s *Service) observeSealed(ctx context.Context, d *Decision) {
	if s.metrics != nil {
		s.metrics.DecisionSealed(string(d.Action), string(d.Status))
	}
	s.emit(audit.Event{
		Category:    audit.CategoryCompliance,
		Action:      audit.EventDecisionSealed,
		CheckItemID: d.CheckItemID.String(),
		DecisionID:  d.ID.String(),
		UserID:      d.ReviewerID.String(),
		TenantID:    d.TenantID.String(),
		Outcome:     string(d.Status),
		RequestID:   requestcontext.RequestID(ctx),
	})
}

func (s *Service) emit(event audit.Event) {
	if s.auditor != nil {
		s.auditor.Enqueue(event)
	}
}

func checkContext(item *CheckItem) evidence.CheckContext {
	return evidence.CheckContext{
		CheckItemID: item.ID,
		TenantID:    item.TenantID,
		Amount:      item.Amount,
		RiskLevel:   item.RiskLevel,
		ImageHashes: item.ImageHashes,
	}
}
