//go:build integration

package imagetoken_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sealproof/internal/imagetoken"
	"sealproof/pkg/domain"
	"sealproof/pkg/platform/sentinel"
	"sealproof/pkg/testutil/containers"
)

func testGrant() imagetoken.Grant {
	return imagetoken.Grant{
		CheckItemID: domain.CheckItemID(uuid.New()),
		Side:        imagetoken.SideFront,
		UserID:      domain.UserID(uuid.New()),
		TenantID:    domain.TenantID(uuid.New()),
		ExpiresAt:   time.Now().Add(90 * time.Second).UTC().Truncate(time.Second),
	}
}

func TestRedisStoreIntegration(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	store := imagetoken.NewRedisStore(rc.Client)

	t.Run("consume returns grant exactly once", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		grant := testGrant()
		require.NoError(t, store.Put(ctx, "tok-once", grant, time.Minute))

		got, err := store.Consume(ctx, "tok-once")
		require.NoError(t, err)
		assert.Equal(t, grant, *got)

		_, err = store.Consume(ctx, "tok-once")
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("racing consumers admit exactly one", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, store.Put(ctx, "tok-race", testGrant(), time.Minute))

		var wg sync.WaitGroup
		var mu sync.Mutex
		granted := 0
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.Consume(ctx, "tok-race"); err == nil {
					mu.Lock()
					granted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, granted)
	})

	t.Run("token expires with its key", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		require.NoError(t, store.Put(ctx, "tok-short", testGrant(), 500*time.Millisecond))

		require.Eventually(t, func() bool {
			_, err := store.Consume(ctx, "tok-short")
			return err != nil
		}, 3*time.Second, 100*time.Millisecond)
	})

	t.Run("unknown token is not found", func(t *testing.T) {
		_, err := store.Consume(ctx, "tok-missing")
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestRedisRateLimiterIntegration(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)

	t.Run("allows up to the limit then denies", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		limiter := imagetoken.NewRedisRateLimiter(rc.Client, 3, time.Minute)
		user := uuid.NewString()

		for i := range 3 {
			ok, err := limiter.Allow(ctx, user)
			require.NoError(t, err)
			assert.True(t, ok, "mint %d should be allowed", i)
		}
		ok, err := limiter.Allow(ctx, user)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("window expiry resets the count", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		limiter := imagetoken.NewRedisRateLimiter(rc.Client, 1, 500*time.Millisecond)
		user := uuid.NewString()

		ok, err := limiter.Allow(ctx, user)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = limiter.Allow(ctx, user)
		require.NoError(t, err)
		require.False(t, ok)

		require.Eventually(t, func() bool {
			ok, err := limiter.Allow(ctx, user)
			return err == nil && ok
		}, 3*time.Second, 100*time.Millisecond)
	})

	t.Run("users are counted independently", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		limiter := imagetoken.NewRedisRateLimiter(rc.Client, 1, time.Minute)

		ok, err := limiter.Allow(ctx, "user-a")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = limiter.Allow(ctx, "user-b")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
