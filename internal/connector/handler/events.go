package handler

import (
	"context"

	"github.com/mssola/useragent"

	"sealproof/internal/audit"
	"sealproof/pkg/requestcontext"
)

func issuedEvent(ctx context.Context, subject, tenant, ua string) audit.Event {
	return audit.Event{
		Category:  audit.CategoryOperations,
		Action:    audit.EventCredentialIssued,
		Subject:   subject,
		TenantID:  tenant,
		UserID:    requestcontext.UserID(ctx).String(),
		RequestID: requestcontext.RequestID(ctx),
		Client:    clientName(ua),
	}
}

func pathRejectedEvent(ctx context.Context, subject, tenant, ua string) audit.Event {
	return audit.Event{
		Category:  audit.CategorySecurity,
		Action:    audit.EventPathRejected,
		Subject:   subject,
		TenantID:  tenant,
		RequestID: requestcontext.RequestID(ctx),
		Client:    clientName(ua),
	}
}

// clientName condenses the User-Agent header into a short product token for
// the audit record. Unrecognized agents are kept verbatim so raw proxy
// identifiers like "sealproof-image-proxy/1.4" survive.
func clientName(ua string) string {
	if ua == "" {
		return ""
	}
	name, version := useragent.New(ua).Browser()
	if name == "" {
		return ua
	}
	if version == "" {
		return name
	}
	return name + "/" + version
}
