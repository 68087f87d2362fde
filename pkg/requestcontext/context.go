// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them, services read them, and tests
// inject them without standing up an HTTP stack.
//
// The request time accessor doubles as the injectable clock: every expiry and
// seal-timestamp comparison in the module goes through Now(ctx) so tests can
// pin time with WithTime.
package requestcontext

import (
	"context"
	"time"

	"sealproof/pkg/domain"
)

type (
	userIDKey      struct{}
	tenantIDKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// UserID retrieves the authenticated user ID from the context.
// Returns the zero value if not set.
func UserID(ctx context.Context) domain.UserID {
	if id, ok := ctx.Value(userIDKey{}).(domain.UserID); ok {
		return id
	}
	return domain.UserID{}
}

// WithUserID injects a user ID into the context.
func WithUserID(ctx context.Context, id domain.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// TenantID retrieves the tenant ID from the context.
func TenantID(ctx context.Context) domain.TenantID {
	if id, ok := ctx.Value(tenantIDKey{}).(domain.TenantID); ok {
		return id
	}
	return domain.TenantID{}
}

// WithTenantID injects a tenant ID into the context.
func WithTenantID(ctx context.Context, id domain.TenantID) context.Context {
	return context.WithValue(ctx, tenantIDKey{}, id)
}

// RequestID retrieves the correlation ID set by middleware, or "".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Now returns the request time if one was injected, else time.Now().
// Services must use this instead of calling time.Now() directly.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request time; used by middleware at request entry and by
// tests that need a fixed clock.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
