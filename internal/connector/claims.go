// Package connector issues and validates the short-lived signed credentials
// a remote bank-side image proxy presents back to this service. Credentials
// are asymmetrically signed claim sets verifiable offline; nothing in the
// claim set can bypass the path allowlist, because no path claim exists.
package connector

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the connector credential claim set: subject, tenant, roles, and
// the registered claims (jti, iat, exp, iss).
type Claims struct {
	Org   string   `json:"org"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the credential grants the named role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Remaining returns the credential's unexpired lifetime at now; zero or
// negative means expired. The replay cache TTL equals this remainder so a
// jti entry outlives its credential by nothing.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}
