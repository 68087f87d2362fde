// Package imagetoken mints and consumes one-time-use opaque tokens granting
// temporary access to check images. A token is retrievable at most once:
// consumption is an atomic get-and-delete, never a read followed by a
// delete.
package imagetoken

import (
	"time"

	"sealproof/pkg/domain"
)

// Side names which face of the check the token grants.
type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

// ParseSide validates a requested image side.
func ParseSide(s string) (Side, bool) {
	switch Side(s) {
	case SideFront, SideBack:
		return Side(s), true
	}
	return "", false
}

// Grant is the metadata released exactly once when a token is consumed.
type Grant struct {
	CheckItemID domain.CheckItemID `json:"check_item_id"`
	Side        Side               `json:"side"`
	UserID      domain.UserID      `json:"user_id"`
	TenantID    domain.TenantID    `json:"tenant_id"`
	ExpiresAt   time.Time          `json:"expires_at"`
}

// Minted is returned to the caller at mint time.
type Minted struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
