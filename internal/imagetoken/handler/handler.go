// Package handler exposes the ephemeral image token endpoints. Minting
// requires a reviewer identity; consuming is authorized by the token itself,
// since the renderer holds nothing else.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"sealproof/internal/imagetoken"
	"sealproof/internal/platform/middleware"
	"sealproof/pkg/domain"
	dErrors "sealproof/pkg/domain-errors"
	"sealproof/pkg/platform/httputil"
	"sealproof/pkg/requestcontext"
)

// Service defines the interface for image token operations.
type Service interface {
	Mint(ctx context.Context, checkItemID domain.CheckItemID, side imagetoken.Side, userID domain.UserID, tenantID domain.TenantID) (*imagetoken.Minted, error)
	Consume(ctx context.Context, token string) (*imagetoken.Grant, error)
}

// Handler wires image token endpoints to the token service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts image token endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity(h.logger))
		r.Post("/images/tokens", h.HandleMint)
	})
	r.Post("/images/tokens/consume", h.HandleConsume)
}

// MintRequest is the HTTP request body for POST /images/tokens.
type MintRequest struct {
	CheckItemID string `json:"check_item_id"`
	Side        string `json:"side"`

	parsedCheckItemID domain.CheckItemID
	parsedSide        imagetoken.Side
}

// Validate validates and parses the request.
func (r *MintRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "request body is required")
	}
	checkItemID, err := domain.ParseCheckItemID(strings.TrimSpace(r.CheckItemID))
	if err != nil {
		return err
	}
	r.parsedCheckItemID = checkItemID

	side, ok := imagetoken.ParseSide(strings.TrimSpace(r.Side))
	if !ok {
		return dErrors.Newf(dErrors.CodeValidation, "unknown image side %q", r.Side)
	}
	r.parsedSide = side
	return nil
}

// ConsumeRequest is the HTTP request body for POST /images/tokens/consume.
type ConsumeRequest struct {
	Token string `json:"token"`
}

// Validate validates the request.
func (r *ConsumeRequest) Validate() error {
	if r == nil || strings.TrimSpace(r.Token) == "" {
		return dErrors.New(dErrors.CodeValidation, "token is required")
	}
	return nil
}

// HandleMint handles POST /images/tokens.
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[MintRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	minted, err := h.service.Mint(ctx, req.parsedCheckItemID, req.parsedSide, userID, requestcontext.TenantID(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "image token mint refused",
			"request_id", requestID,
			"check_item_id", req.CheckItemID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, minted)
}

// HandleConsume handles POST /images/tokens/consume.
func (h *Handler) HandleConsume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ConsumeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	grant, err := h.service.Consume(ctx, req.Token)
	if err != nil {
		// Unknown, expired, and already-consumed tokens all surface the same
		// way, so a probing caller cannot distinguish them.
		h.logger.WarnContext(ctx, "image token consume refused",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, grant)
}
