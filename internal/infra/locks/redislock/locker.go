// Package redislock holds product keys in Redis so that several instances
// sharing one database serialise availability checks.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"stagerent/internal/app/locks"
)

const (
	defaultTTL      = 30 * time.Second
	defaultWait     = 5 * time.Second
	defaultInterval = 25 * time.Millisecond
	keyPrefix       = "stagerent:lock:"
)

// Keys are deleted only by the token that set them.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Options struct {
	// TTL bounds how long a crashed holder blocks others.
	TTL time.Duration
	// Wait bounds how long Acquire retries before ErrLockTimeout.
	Wait  time.Duration
	Retry time.Duration
}

type Locker struct {
	client *redis.Client
	opts   Options
}

func New(client *redis.Client, opts Options) *Locker {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.Wait <= 0 {
		opts.Wait = defaultWait
	}
	if opts.Retry <= 0 {
		opts.Retry = defaultInterval
	}
	return &Locker{client: client, opts: opts}
}

func (l *Locker) Acquire(ctx context.Context, keys []string) (locks.Lease, error) {
	keys = locks.Normalize(keys)
	token := uuid.NewString()
	deadline := time.Now().Add(l.opts.Wait)
	held := make([]string, 0, len(keys))

	for _, key := range keys {
		if err := l.lock(ctx, keyPrefix+key, token, deadline); err != nil {
			l.release(context.WithoutCancel(ctx), held, token)
			return nil, err
		}
		held = append(held, keyPrefix+key)
	}
	return &lease{locker: l, keys: held, token: token}, nil
}

func (l *Locker) lock(ctx context.Context, key, token string, deadline time.Time) error {
	ticker := time.NewTicker(l.opts.Retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			return fmt.Errorf("redis setnx %s: %w", key, err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", locks.ErrLockTimeout, key)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locker) release(ctx context.Context, keys []string, token string) error {
	var errs []error
	missing := false
	for i := len(keys) - 1; i >= 0; i-- {
		n, err := releaseScript.Run(ctx, l.client, []string{keys[i]}, token).Int()
		if err != nil {
			errs = append(errs, fmt.Errorf("redis release %s: %w", keys[i], err))
			continue
		}
		if n == 0 {
			missing = true
		}
	}
	if missing {
		errs = append(errs, locks.ErrNotHeld)
	}
	return errors.Join(errs...)
}

type lease struct {
	locker *Locker
	keys   []string
	token  string
}

// Release reports ErrNotHeld when a key expired or was taken over before
// release; the work it guarded may have interleaved with another holder.
func (l *lease) Release(ctx context.Context) error {
	return l.locker.release(ctx, l.keys, l.token)
}
