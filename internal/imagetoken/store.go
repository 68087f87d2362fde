package imagetoken

import (
	"context"
	"time"
)

// Store holds live tokens. Error contract (sentinel errors):
// - Consume returns ErrNotFound for a token that is absent, whether it was
//   consumed, expired, or never existed; callers cannot distinguish, and
//   the service reports all three identically.
//
// Consume must retrieve and delete in one atomic step. Implementations with
// no native get-and-delete must use a transactional delete-returning or a
// compare-and-delete loop; a check-then-delete sequence is a race and is
// not an acceptable implementation of this interface.
type Store interface {
	Put(ctx context.Context, token string, grant Grant, ttl time.Duration) error
	Consume(ctx context.Context, token string) (*Grant, error)
}

// RateLimiter bounds mint calls per user. Allow returns false once the
// user's window is exhausted.
type RateLimiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}
