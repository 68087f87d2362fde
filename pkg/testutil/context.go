package testutil

import (
	"net/http"

	id "sealproof/pkg/domain"
	"sealproof/pkg/requestcontext"
)

// WithIdentity adds the reviewer and tenant identity headers to the request,
// the same way the gateway in front of this service does. Handlers behind
// middleware.RequireIdentity read these.
func WithIdentity(req *http.Request, userID, tenantID string) *http.Request {
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if tenantID != "" {
		req.Header.Set("X-Tenant-ID", tenantID)
	}
	return req
}

// WithUserContext adds a parsed user ID directly to the request context,
// bypassing the identity middleware. Useful when testing a handler in
// isolation. Invalid IDs are silently ignored.
func WithUserContext(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// WithTenantContext adds a parsed tenant ID directly to the request context.
// Invalid IDs are silently ignored.
func WithTenantContext(req *http.Request, tenantID string) *http.Request {
	parsed, err := id.ParseTenantID(tenantID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithTenantID(req.Context(), parsed))
}
