package connector

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "sealproof/pkg/domain-errors"
	pstrings "sealproof/pkg/platform/strings"
	"sealproof/pkg/requestcontext"
)

// TTL bounds for issued credentials. Requests outside the window are
// clamped, not rejected: the bounds are a policy of this service, not a
// caller contract.
const (
	MinTTL = 60 * time.Second
	MaxTTL = 120 * time.Second
)

// Issuer mints EdDSA-signed connector credentials.
type Issuer struct {
	key      ed25519.PrivateKey
	issuerID string
}

func NewIssuer(key ed25519.PrivateKey, issuerID string) *Issuer {
	return &Issuer{key: key, issuerID: issuerID}
}

// Issue signs a credential for subject acting in tenant with the granted
// roles. Each credential carries a fresh jti; the validator accepts it at
// most once.
func (i *Issuer) Issue(ctx context.Context, subject, tenant string, roles []string, ttl time.Duration) (string, error) {
	if subject == "" || tenant == "" {
		return "", dErrors.New(dErrors.CodeValidation, "subject and tenant are required")
	}
	roles = pstrings.DedupeAndTrimLower(roles)
	if len(roles) == 0 {
		return "", dErrors.New(dErrors.CodeValidation, "at least one role is required")
	}
	if ttl < MinTTL {
		ttl = MinTTL
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}

	now := requestcontext.Now(ctx)
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, Claims{
		Org:   tenant,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    i.issuerID,
		},
	})

	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "credential signing failed")
	}
	return signed, nil
}
