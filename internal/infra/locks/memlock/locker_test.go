package memlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stagerent/internal/app/locks"
)

func TestAcquireSerialisesOverlappingKeys(t *testing.T) {
	locker := New()
	var inside, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			keys := []string{"product:b", "product:a"}
			if i%2 == 0 {
				keys = []string{"product:a", "product:b"}
			}
			lease, err := locker.Acquire(context.Background(), keys)
			require.NoError(t, err)
			n := atomic.AddInt32(&inside, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			require.NoError(t, lease.Release(context.Background()))
		}(i)
	}
	wg.Wait()
	require.Equal(t, int32(1), peak)
}

func TestAcquireHonoursContext(t *testing.T) {
	locker := New()
	lease, err := locker.Acquire(context.Background(), []string{"product:a"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, []string{"product:b", "product:a"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// product:b must have been released after the failed attempt.
	other, err := locker.Acquire(context.Background(), []string{"product:b"})
	require.NoError(t, err)
	require.NoError(t, other.Release(context.Background()))

	require.NoError(t, lease.Release(context.Background()))
	require.ErrorIs(t, lease.Release(context.Background()), locks.ErrNotHeld)
}
