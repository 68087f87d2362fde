package imagetoken

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sealproof/pkg/platform/sentinel"
)

type memoryEntry struct {
	grant     Grant
	expiresAt time.Time
}

// InMemoryStore keeps tokens in a mutex-guarded map for tests and dev. The
// lookup and delete in Consume happen inside one lock hold, which is the
// memory-map equivalent of delete-returning.
type InMemoryStore struct {
	mu     sync.Mutex
	tokens map[string]memoryEntry
	now    func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[string]memoryEntry), now: time.Now}
}

// WithClock injects a clock for expiry tests.
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	s.now = now
	return s
}

func (s *InMemoryStore) Put(_ context.Context, token string, grant Grant, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = memoryEntry{grant: grant, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryStore) Consume(_ context.Context, token string) (*Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[token]
	if !ok {
		return nil, fmt.Errorf("image token: %w", sentinel.ErrNotFound)
	}
	delete(s.tokens, token)
	if s.now().After(entry.expiresAt) {
		// Expired entries are gone either way; report the same fact.
		return nil, fmt.Errorf("image token: %w", sentinel.ErrNotFound)
	}
	grant := entry.grant
	return &grant, nil
}

// InMemoryRateLimiter counts mints per user in fixed windows.
type InMemoryRateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	buckets map[string]*memoryBucket
	now     func() time.Time
}

type memoryBucket struct {
	windowStart time.Time
	count       int
}

func NewInMemoryRateLimiter(limit int, window time.Duration) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		window:  window,
		limit:   limit,
		buckets: make(map[string]*memoryBucket),
		now:     time.Now,
	}
}

// WithClock injects a clock for window tests.
func (l *InMemoryRateLimiter) WithClock(now func() time.Time) *InMemoryRateLimiter {
	l.now = now
	return l
}

func (l *InMemoryRateLimiter) Allow(_ context.Context, userID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	bucket, ok := l.buckets[userID]
	if !ok || now.Sub(bucket.windowStart) >= l.window {
		l.buckets[userID] = &memoryBucket{windowStart: now, count: 1}
		return true, nil
	}
	if bucket.count >= l.limit {
		return false, nil
	}
	bucket.count++
	return true, nil
}
