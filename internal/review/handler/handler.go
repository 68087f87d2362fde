package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sealproof/internal/platform/middleware"
	"sealproof/internal/review"
	"sealproof/pkg/domain"
	dErrors "sealproof/pkg/domain-errors"
	"sealproof/pkg/platform/httputil"
	"sealproof/pkg/requestcontext"
)

// Service defines the interface for review decision operations.
type Service interface {
	CreateDecision(ctx context.Context, req review.CreateDecisionRequest) (*review.Decision, error)
	ApproveDualControl(ctx context.Context, req review.DualControlRequest) (*review.Decision, error)
	ListDecisions(ctx context.Context, checkItemID domain.CheckItemID) ([]*review.Decision, error)
}

// ChainVerifier defines the interface for chain verification.
type ChainVerifier interface {
	VerifyChain(ctx context.Context, checkItemID domain.CheckItemID) (*review.VerifyReport, error)
}

// Handler wires review endpoints to the review service.
type Handler struct {
	service  Service
	verifier ChainVerifier
	logger   *slog.Logger
}

// New constructs a review handler with its dependencies.
func New(service Service, verifier ChainVerifier, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		verifier: verifier,
		logger:   logger,
	}
}

// Register mounts review endpoints on the router. All of them require a
// resolved reviewer identity.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity(h.logger))
		r.Post("/review/decisions", h.HandleCreateDecision)
		r.Post("/review/decisions/{decisionID}/dual-control", h.HandleDualControl)
		r.Get("/review/check-items/{checkItemID}/decisions", h.HandleListDecisions)
		r.Get("/review/check-items/{checkItemID}/chain", h.HandleVerifyChain)
	})
}

// HandleCreateDecision handles POST /review/decisions.
func (h *Handler) HandleCreateDecision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	reviewerID := requestcontext.UserID(ctx)
	if reviewerID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateDecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	decision, err := h.service.CreateDecision(ctx, review.CreateDecisionRequest{
		CheckItemID:           req.ParsedCheckItemID(),
		Action:                req.ParsedAction(),
		ReviewerID:            reviewerID,
		Notes:                 req.Notes,
		ReasonCodes:           req.ReasonCodes,
		OverrideJustification: req.OverrideJustification,
		OverrideCategory:      req.OverrideCategory,
		BasedOnVersion:        req.BasedOnVersion,
	})
	if err != nil {
		h.logError(ctx, "decision creation failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "decision sealed",
		"request_id", requestID,
		"check_item_id", req.CheckItemID,
		"decision_id", decision.ID,
		"status", decision.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromDecision(decision))
}

// HandleDualControl handles POST /review/decisions/{decisionID}/dual-control.
func (h *Handler) HandleDualControl(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	approverID := requestcontext.UserID(ctx)
	if approverID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	decisionID, err := domain.ParseDecisionID(chi.URLParam(r, "decisionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[DualControlRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	decision, err := h.service.ApproveDualControl(ctx, review.DualControlRequest{
		DecisionID: decisionID,
		ApproverID: approverID,
		Approve:    req.Approve,
		Notes:      req.Notes,
	})
	if err != nil {
		h.logError(ctx, "dual-control resolution failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromDecision(decision))
}

// HandleListDecisions handles GET /review/check-items/{checkItemID}/decisions.
func (h *Handler) HandleListDecisions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	checkItemID, err := domain.ParseCheckItemID(chi.URLParam(r, "checkItemID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	decisions, err := h.service.ListDecisions(ctx, checkItemID)
	if err != nil {
		h.logError(ctx, "decision listing failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromDecisions(checkItemID.String(), decisions))
}

// HandleVerifyChain handles GET /review/check-items/{checkItemID}/chain.
func (h *Handler) HandleVerifyChain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	checkItemID, err := domain.ParseCheckItemID(chi.URLParam(r, "checkItemID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.verifier.VerifyChain(ctx, checkItemID)
	if err != nil {
		h.logError(ctx, "chain verification failed", requestID, err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) logError(ctx context.Context, msg, requestID string, err error) {
	level := slog.LevelError
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeConflict, dErrors.CodePermission, dErrors.CodeNotFound:
		level = slog.LevelWarn
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestID,
		"error", err.Error(),
	)
}
