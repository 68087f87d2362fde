// Package handler exposes the connector credential endpoints: issuance for
// the remote image proxy, and validation of presented credentials together
// with the requested path.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"sealproof/internal/connector"
	"sealproof/internal/connector/pathallow"
	"sealproof/internal/platform/middleware"
	dErrors "sealproof/pkg/domain-errors"
	"sealproof/pkg/platform/httputil"
	"sealproof/pkg/requestcontext"
)

// Issuer defines the interface for credential issuance.
type Issuer interface {
	Issue(ctx context.Context, subject, tenant string, roles []string, ttl time.Duration) (string, error)
}

// Validator defines the interface for credential validation.
type Validator interface {
	Validate(ctx context.Context, token string) (*connector.Claims, error)
}

// Handler wires connector endpoints to the issuer and validator.
type Handler struct {
	issuer    Issuer
	validator Validator
	allowlist *pathallow.Allowlist
	metrics   connector.Metrics
	auditor   connector.AuditEmitter
	logger    *slog.Logger
}

func New(issuer Issuer, validator Validator, allowlist *pathallow.Allowlist, metrics connector.Metrics, auditor connector.AuditEmitter, logger *slog.Logger) *Handler {
	return &Handler{
		issuer:    issuer,
		validator: validator,
		allowlist: allowlist,
		metrics:   metrics,
		auditor:   auditor,
		logger:    logger,
	}
}

// Register mounts connector endpoints. Issuance needs an operator identity;
// validation authenticates by the credential itself.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity(h.logger))
		r.Post("/connector/credentials", h.HandleIssue)
	})
	r.Post("/connector/credentials/validate", h.HandleValidate)
}

// IssueRequest is the HTTP request body for POST /connector/credentials.
type IssueRequest struct {
	Subject    string   `json:"subject"`
	Tenant     string   `json:"tenant"`
	Roles      []string `json:"roles"`
	TTLSeconds int      `json:"ttl_seconds"`
}

// Validate validates the request. TTL bounds are enforced by the issuer
// (clamped, not rejected), so only structural checks happen here.
func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "request body is required")
	}
	r.Subject = strings.TrimSpace(r.Subject)
	r.Tenant = strings.TrimSpace(r.Tenant)
	if r.Subject == "" || r.Tenant == "" {
		return dErrors.New(dErrors.CodeValidation, "subject and tenant are required")
	}
	if r.TTLSeconds < 0 {
		return dErrors.New(dErrors.CodeValidation, "ttl_seconds must not be negative")
	}
	return nil
}

// IssueResponse is the HTTP response for POST /connector/credentials.
type IssueResponse struct {
	Credential string `json:"credential"`
}

// ValidateRequest is the HTTP request body for
// POST /connector/credentials/validate.
type ValidateRequest struct {
	Credential    string `json:"credential"`
	RequestedPath string `json:"requested_path"`
}

// Validate validates the request.
func (r *ValidateRequest) Validate() error {
	if r == nil || strings.TrimSpace(r.Credential) == "" {
		return dErrors.New(dErrors.CodeValidation, "credential is required")
	}
	if r.RequestedPath == "" {
		return dErrors.New(dErrors.CodeValidation, "requested_path is required")
	}
	return nil
}

// ValidateResponse is the HTTP response for a successful validation.
type ValidateResponse struct {
	Subject       string   `json:"subject"`
	Tenant        string   `json:"tenant"`
	Roles         []string `json:"roles"`
	CanonicalPath string   `json:"canonical_path"`
}

// HandleIssue handles POST /connector/credentials.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	credential, err := h.issuer.Issue(ctx, req.Subject, req.Tenant, req.Roles, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		h.logger.WarnContext(ctx, "credential issuance refused",
			"request_id", requestID,
			"subject", req.Subject,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.CredentialIssued()
	}
	h.emitIssued(ctx, req.Subject, req.Tenant, r.UserAgent())
	httputil.WriteJSON(w, http.StatusCreated, IssueResponse{Credential: credential})
}

// HandleValidate handles POST /connector/credentials/validate. The path
// check runs only after the credential itself is accepted, so an attacker
// cannot use this endpoint to map the allowlist with forged credentials.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ValidateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	claims, err := h.validator.Validate(ctx, req.Credential)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	canonical, err := h.allowlist.Check(req.RequestedPath)
	if err != nil {
		h.emitPathRejected(ctx, claims.Subject, claims.Org, r.UserAgent())
		h.logger.WarnContext(ctx, "connector path rejected",
			"request_id", requestID,
			"subject", claims.Subject,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ValidateResponse{
		Subject:       claims.Subject,
		Tenant:        claims.Org,
		Roles:         claims.Roles,
		CanonicalPath: canonical,
	})
}

func (h *Handler) emitIssued(ctx context.Context, subject, tenant, ua string) {
	if h.auditor == nil {
		return
	}
	h.auditor.Enqueue(issuedEvent(ctx, subject, tenant, ua))
}

func (h *Handler) emitPathRejected(ctx context.Context, subject, tenant, ua string) {
	if h.auditor == nil {
		return
	}
	h.auditor.Enqueue(pathRejectedEvent(ctx, subject, tenant, ua))
}
