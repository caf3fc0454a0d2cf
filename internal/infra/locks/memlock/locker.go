// Package memlock holds product keys in process. It is enough for a single
// instance running on the in-memory store.
package memlock

import (
	"context"
	"sync"

	"stagerent/internal/app/locks"
)

type Locker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func New() *Locker {
	return &Locker{held: make(map[string]chan struct{})}
}

func (l *Locker) Acquire(ctx context.Context, keys []string) (locks.Lease, error) {
	keys = locks.Normalize(keys)
	acquired := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := l.lock(ctx, key); err != nil {
			l.unlock(acquired)
			return nil, err
		}
		acquired = append(acquired, key)
	}
	return &lease{locker: l, keys: acquired}, nil
}

func (l *Locker) lock(ctx context.Context, key string) error {
	for {
		l.mu.Lock()
		wait, busy := l.held[key]
		if !busy {
			l.held[key] = make(chan struct{})
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Locker) unlock(keys []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range keys {
		if ch, ok := l.held[key]; ok {
			delete(l.held, key)
			close(ch)
		}
	}
}

type lease struct {
	locker *Locker
	once   sync.Once
	keys   []string
}

func (l *lease) Release(context.Context) error {
	released := false
	l.once.Do(func() {
		l.locker.unlock(l.keys)
		released = true
	})
	if !released {
		return locks.ErrNotHeld
	}
	return nil
}
