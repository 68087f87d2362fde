package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"sealproof/pkg/platform/sentinel"
)

// ReplayCache records consumed jtis. FirstUse must be a single atomic
// check-and-set: two racing validators presenting the same jti must never
// both observe "not present". Entries live exactly as long as the
// credential's remaining lifetime.
//
// The cache is injected, never a package singleton, so tests swap a fake
// and production can scale it independently.
type ReplayCache interface {
	FirstUse(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

const replayKeyPrefix = "conn:jti:"

// RedisReplayCache is the production replay cache. SETNX is the atomic
// check-and-set; key TTL is the eviction.
type RedisReplayCache struct {
	client *redis.Client
}

func NewRedisReplayCache(client *redis.Client) *RedisReplayCache {
	return &RedisReplayCache{client: client}
}

func (c *RedisReplayCache) FirstUse(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, replayKeyPrefix+jti, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("replay cache: %w", sentinel.ErrUnavailable)
	}
	return ok, nil
}

type replayEntry struct {
	expiresAt time.Time
}

// InMemoryReplayCache is a mutex-guarded replay cache for tests and
// single-process deployments. The insert happens inside one lock hold.
type InMemoryReplayCache struct {
	mu      sync.Mutex
	entries map[string]replayEntry
	now     func() time.Time
}

func NewInMemoryReplayCache() *InMemoryReplayCache {
	return &InMemoryReplayCache{entries: make(map[string]replayEntry), now: time.Now}
}

// WithClock injects a clock for eviction tests.
func (c *InMemoryReplayCache) WithClock(now func() time.Time) *InMemoryReplayCache {
	c.now = now
	return c
}

func (c *InMemoryReplayCache) FirstUse(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if entry, ok := c.entries[jti]; ok && now.Before(entry.expiresAt) {
		return false, nil
	}
	c.entries[jti] = replayEntry{expiresAt: now.Add(ttl)}
	return true, nil
}
