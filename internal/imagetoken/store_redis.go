package imagetoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sealproof/pkg/platform/sentinel"
)

const tokenKeyPrefix = "imgtok:"

// RedisStore is the production token store. GETDEL retrieves and deletes in
// one server-side operation, so two racing consumers can never both see the
// value; expiry is Redis key TTL, so an expired token is simply absent.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, token string, grant Grant, ttl time.Duration) error {
	value, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("marshal grant: %w", err)
	}
	if err := s.client.Set(ctx, tokenKeyPrefix+token, value, ttl).Err(); err != nil {
		return fmt.Errorf("store image token: %w", sentinel.ErrUnavailable)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, token string) (*Grant, error) {
	value, err := s.client.GetDel(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("image token: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("consume image token: %w", sentinel.ErrUnavailable)
	}
	var grant Grant
	if err := json.Unmarshal([]byte(value), &grant); err != nil {
		return nil, fmt.Errorf("unmarshal grant: %w", err)
	}
	return &grant, nil
}

const mintRateKeyPrefix = "imgtok:rate:"

// RedisRateLimiter counts mints per user in fixed windows using INCR with a
// TTL set on first increment. INCR is atomic, so racing minters can never
// both observe the pre-limit count.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: limit, window: window}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	key := mintRateKeyPrefix + userID
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("mint rate check: %w", sentinel.ErrUnavailable)
	}
	if count == 1 {
		// First mint in the window owns the expiry.
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("mint rate window: %w", sentinel.ErrUnavailable)
		}
	}
	return count <= int64(l.limit), nil
}
