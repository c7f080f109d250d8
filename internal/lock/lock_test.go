package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("second acquire fails while held", func(t *testing.T) {
		l := NewLocalLock()

		lease, err := l.Acquire(ctx, "sweep", time.Minute)
		require.NoError(t, err)

		_, err = l.Acquire(ctx, "sweep", time.Minute)
		require.ErrorIs(t, err, ErrHeld)

		require.NoError(t, lease.Release(ctx))
		require.NoError(t, lease.Release(ctx))

		again, err := l.Acquire(ctx, "sweep", time.Minute)
		require.NoError(t, err)
		require.NoError(t, again.Release(ctx))
	})

	t.Run("keys are independent", func(t *testing.T) {
		l := NewLocalLock()

		_, err := l.Acquire(ctx, "a", time.Minute)
		require.NoError(t, err)
		_, err = l.Acquire(ctx, "b", time.Minute)
		require.NoError(t, err)
	})

	t.Run("expired lease can be taken over", func(t *testing.T) {
		l := NewLocalLock()
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		l.now = func() time.Time { return now }

		stale, err := l.Acquire(ctx, "sweep", time.Minute)
		require.NoError(t, err)

		now = now.Add(2 * time.Minute)
		fresh, err := l.Acquire(ctx, "sweep", time.Minute)
		require.NoError(t, err)

		require.NoError(t, stale.Release(ctx))
		_, err = l.Acquire(ctx, "sweep", time.Minute)
		assert.ErrorIs(t, err, ErrHeld, "stale release must not free the new holder")

		require.NoError(t, fresh.Release(ctx))
	})
}
