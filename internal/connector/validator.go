package connector

import (
	"context"
	"crypto/ed25519"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sealproof/internal/audit"
	dErrors "sealproof/pkg/domain-errors"
	"sealproof/pkg/requestcontext"
)

// Keyring holds the pinned verification keys. During a rotation window both
// the active and the previous key verify, so credentials signed just before
// a rotation stay valid for their short lifetime.
type Keyring struct {
	Active        ed25519.PublicKey
	Previous      ed25519.PublicKey
	RotationUntil time.Time
}

func (k Keyring) candidates(now time.Time) []ed25519.PublicKey {
	keys := []ed25519.PublicKey{k.Active}
	if k.Previous != nil && now.Before(k.RotationUntil) {
		keys = append(keys, k.Previous)
	}
	return keys
}

// Metrics receives credential issue and validation outcomes.
type Metrics interface {
	CredentialIssued()
	CredentialValidated(outcome string)
}

// AuditEmitter publishes audit events off the request path.
type AuditEmitter interface {
	Enqueue(event audit.Event)
}

// Validator verifies connector credentials offline and enforces
// single-acceptance per jti through the replay cache.
type Validator struct {
	keys         Keyring
	issuerID     string
	requiredRole string
	replay       ReplayCache
	metrics      Metrics
	auditor      AuditEmitter
	logger       *slog.Logger
}

func NewValidator(keys Keyring, issuerID, requiredRole string, replay ReplayCache, metrics Metrics, auditor AuditEmitter, logger *slog.Logger) *Validator {
	return &Validator{
		keys:         keys,
		issuerID:     issuerID,
		requiredRole: requiredRole,
		replay:       replay,
		metrics:      metrics,
		auditor:      auditor,
		logger:       logger,
	}
}

// Validate checks signature, expiry, issuer, and role, then consumes the
// jti. A second presentation of the same jti fails as a replay even before
// the credential's nominal expiry: the validator cannot distinguish a
// network retry from an attack, so replay is always rejected.
func (v *Validator) Validate(ctx context.Context, token string) (*Claims, error) {
	now := requestcontext.Now(ctx)

	claims, err := v.parseVerified(ctx, token, now)
	if err != nil {
		return nil, err
	}

	if claims.Issuer != v.issuerID {
		return nil, v.reject(ctx, claims, "unknown_issuer",
			dErrors.New(dErrors.CodeUnauthorized, "credential issuer is not trusted"))
	}
	if v.requiredRole != "" && !claims.HasRole(v.requiredRole) {
		return nil, v.reject(ctx, claims, "missing_role",
			dErrors.Newf(dErrors.CodePermission, "credential lacks required role %q", v.requiredRole))
	}
	if claims.ID == "" {
		return nil, v.reject(ctx, claims, "missing_jti",
			dErrors.New(dErrors.CodeUnauthorized, "credential carries no jti"))
	}

	remaining := claims.Remaining(now)
	if remaining <= 0 {
		return nil, v.reject(ctx, claims, "expired",
			dErrors.New(dErrors.CodeUnauthorized, "credential has expired"))
	}

	first, err := v.replay.FirstUse(ctx, claims.ID, remaining)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "replay cache unavailable")
	}
	if !first {
		if v.auditor != nil {
			v.auditor.Enqueue(audit.Event{
				Category:  audit.CategorySecurity,
				Action:    audit.EventReplayDetected,
				Subject:   claims.Subject,
				TenantID:  claims.Org,
				RequestID: requestcontext.RequestID(ctx),
			})
		}
		return nil, v.reject(ctx, claims, "replay",
			dErrors.New(dErrors.CodeReplayDetected, "credential jti was already accepted"))
	}

	if v.metrics != nil {
		v.metrics.CredentialValidated("accepted")
	}
	return claims, nil
}

func (v *Validator) parseVerified(ctx context.Context, token string, now time.Time) (*Claims, error) {
	var lastErr error
	for _, key := range v.keys.candidates(now) {
		claims := &Claims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
				return nil, jwt.ErrTokenUnverifiable
			}
			return key, nil
		}, jwt.WithTimeFunc(func() time.Time { return now }))
		if err == nil && parsed.Valid {
			return claims, nil
		}
		lastErr = err
		// Signature mismatches fall through to the previous key during the
		// rotation window; everything else is terminal for this token.
		if err != nil && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			break
		}
	}

	if errors.Is(lastErr, jwt.ErrTokenExpired) {
		return nil, v.reject(ctx, nil, "expired",
			dErrors.New(dErrors.CodeUnauthorized, "credential has expired"))
	}
	return nil, v.reject(ctx, nil, "bad_signature",
		dErrors.New(dErrors.CodeUnauthorized, "credential signature is invalid"))
}

func (v *Validator) reject(ctx context.Context, claims *Claims, reason string, err error) error {
	if v.metrics != nil {
		v.metrics.CredentialValidated(reason)
	}
	if v.auditor != nil {
		event := audit.Event{
			Category:  audit.CategorySecurity,
			Action:    audit.EventCredentialRejected,
			Reason:    reason,
			RequestID: requestcontext.RequestID(ctx),
		}
		if claims != nil {
			event.Subject = claims.Subject
			event.TenantID = claims.Org
		}
		v.auditor.Enqueue(event)
	}
	if v.logger != nil {
		v.logger.WarnContext(ctx, "connector credential rejected", "reason", reason)
	}
	return err
}
