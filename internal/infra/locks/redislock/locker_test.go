package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"stagerent/internal/app/locks"
)

func setupLocker(t *testing.T, opts Options) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, opts), mr
}

func TestAcquireAndRelease(t *testing.T) {
	locker, mr := setupLocker(t, Options{})
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, []string{"product:b", "product:a"})
	require.NoError(t, err)
	require.True(t, mr.Exists(keyPrefix+"product:a"))
	require.True(t, mr.Exists(keyPrefix+"product:b"))

	require.NoError(t, lease.Release(ctx))
	require.False(t, mr.Exists(keyPrefix+"product:a"))
	require.False(t, mr.Exists(keyPrefix+"product:b"))
}

func TestAcquireTimesOutWhileHeld(t *testing.T) {
	locker, mr := setupLocker(t, Options{Wait: 30 * time.Millisecond, Retry: 5 * time.Millisecond})
	ctx := context.Background()

	first, err := locker.Acquire(ctx, []string{"product:a"})
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, []string{"product:0", "product:a"})
	require.ErrorIs(t, err, locks.ErrLockTimeout)
	require.False(t, mr.Exists(keyPrefix+"product:0"))

	require.NoError(t, first.Release(ctx))
}

func TestReleaseAfterExpiryReportsNotHeld(t *testing.T) {
	locker, mr := setupLocker(t, Options{TTL: time.Second})
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, []string{"product:a"})
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	other, err := locker.Acquire(ctx, []string{"product:a"})
	require.NoError(t, err)

	require.ErrorIs(t, lease.Release(ctx), locks.ErrNotHeld)
	require.True(t, mr.Exists(keyPrefix+"product:a"))
	require.NoError(t, other.Release(ctx))
}
