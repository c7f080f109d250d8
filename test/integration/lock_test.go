//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"portfolio-cms/internal/lock"
)

func TestRedisLockExcludesSecondHolder(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	key := "portfolio-cms:test-lock:" + uuid.NewString()
	first := lock.NewRedisLock(client)
	second := lock.NewRedisLock(client)

	lease, err := first.Acquire(ctx, key, 5*time.Second)
	require.NoError(t, err)

	_, err = second.Acquire(ctx, key, 5*time.Second)
	require.ErrorIs(t, err, lock.ErrHeld)

	require.NoError(t, lease.Release(ctx))

	lease, err = second.Acquire(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
}
