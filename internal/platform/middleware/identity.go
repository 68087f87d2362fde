package middleware

import (
	"log/slog"
	"net/http"

	"sealproof/pkg/domain"
	"sealproof/pkg/requestcontext"
)

// Identity headers set by the fronting gateway after session validation.
// Reviewer identity is never taken from the request body: self-approval and
// dual-control checks compare against these values only.
const (
	HeaderUserID   = "X-User-ID"
	HeaderTenantID = "X-Tenant-ID"
)

// RequireIdentity rejects requests that arrive without a resolvable
// reviewer identity and stashes the parsed IDs in the request context.
func RequireIdentity(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID, err := domain.ParseUserID(r.Header.Get(HeaderUserID))
			if err != nil || userID.IsNil() {
				logger.WarnContext(ctx, "request without reviewer identity",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"missing or invalid identity"}`))
				return
			}
			ctx = requestcontext.WithUserID(ctx, userID)

			if raw := r.Header.Get(HeaderTenantID); raw != "" {
				tenantID, err := domain.ParseTenantID(raw)
				if err != nil {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"invalid tenant"}`))
					return
				}
				ctx = requestcontext.WithTenantID(ctx, tenantID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
