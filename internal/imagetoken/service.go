package imagetoken

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sealproof/internal/audit"
	"sealproof/pkg/domain"
	dErrors "sealproof/pkg/domain-errors"
	"sealproof/pkg/platform/sentinel"
	"sealproof/pkg/requestcontext"
)

// Metrics receives token outcomes.
type Metrics interface {
	TokenMinted()
	TokenConsumed(outcome string)
}

// AuditEmitter publishes audit events off the request path.
type AuditEmitter interface {
	Enqueue(event audit.Event)
}

// Service mints and consumes ephemeral image tokens.
type Service struct {
	store   Store
	limiter RateLimiter
	ttl     time.Duration
	metrics Metrics
	auditor AuditEmitter
	logger  *slog.Logger
}

func NewService(store Store, limiter RateLimiter, ttl time.Duration, metrics Metrics, auditor AuditEmitter, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &Service{store: store, limiter: limiter, ttl: ttl, metrics: metrics, auditor: auditor, logger: logger}
}

// Mint creates an opaque, unguessable single-use token. Abandoning the
// result before use has no effect beyond the entry expiring.
func (s *Service) Mint(ctx context.Context, checkItemID domain.CheckItemID, side Side, userID domain.UserID, tenantID domain.TenantID) (*Minted, error) {
	if checkItemID.IsNil() || userID.IsNil() || tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "check_item_id, user_id, and tenant_id are required")
	}
	if _, ok := ParseSide(string(side)); !ok {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown image side %q", side)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, userID.String())
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "mint rate check failed")
		}
		if !allowed {
			return nil, dErrors.New(dErrors.CodeRateLimited, "image token mint rate exceeded")
		}
	}

	token, err := opaqueToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token generation failed")
	}

	expiresAt := requestcontext.Now(ctx).Add(s.ttl)
	grant := Grant{
		CheckItemID: checkItemID,
		Side:        side,
		UserID:      userID,
		TenantID:    tenantID,
		ExpiresAt:   expiresAt,
	}
	if err := s.store.Put(ctx, token, grant, s.ttl); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token store failed")
	}

	if s.metrics != nil {
		s.metrics.TokenMinted()
	}
	if s.auditor != nil {
		s.auditor.Enqueue(audit.Event{
			Category:    audit.CategoryOperations,
			Action:      audit.EventImageTokenMinted,
			CheckItemID: checkItemID.String(),
			UserID:      userID.String(),
			TenantID:    tenantID.String(),
			RequestID:   requestcontext.RequestID(ctx),
		})
	}
	return &Minted{Token: token, ExpiresAt: expiresAt}, nil
}

// Consume releases the grant behind a token exactly once. Consumed, expired,
// and never-minted tokens all yield the same error; callers cannot tell
// them apart.
func (s *Service) Consume(ctx context.Context, token string) (*Grant, error) {
	if token == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "token is required")
	}

	grant, err := s.store.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) || errors.Is(err, sentinel.ErrAlreadyUsed) {
			if s.metrics != nil {
				s.metrics.TokenConsumed("expired_or_consumed")
			}
			return nil, dErrors.New(dErrors.CodeExpiredOrConsumed, "image token is expired or already consumed")
		}
		if s.metrics != nil {
			s.metrics.TokenConsumed("error")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "token consume failed")
	}

	if s.metrics != nil {
		s.metrics.TokenConsumed("granted")
	}
	if s.auditor != nil {
		s.auditor.Enqueue(audit.Event{
			Category:    audit.CategoryOperations,
			Action:      audit.EventImageTokenConsumed,
			CheckItemID: grant.CheckItemID.String(),
			UserID:      grant.UserID.String(),
			TenantID:    grant.TenantID.String(),
			RequestID:   requestcontext.RequestID(ctx),
		})
	}
	return grant, nil
}

// opaqueToken returns 128 bits of randomness, URL-safe, no padding.
func opaqueToken() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
