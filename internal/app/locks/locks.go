// Package locks serialises check-then-insert on availability. A command
// declares the products it touches, the Locking middleware holds those keys
// around the transaction, and handlers verify that what they touch was
// actually locked.
package locks

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"stagerent/internal/domain/catalog"
)

var (
	// ErrScopeChanged means the command touched a product it did not lock,
	// usually because the cart changed between scope resolution and
	// execution.
	ErrScopeChanged = errors.New("locks: lock scope changed during execution")
	ErrLockTimeout  = errors.New("locks: timed out waiting for lock")
	ErrNotHeld      = errors.New("locks: lease no longer held")
)

type Locker interface {
	// Acquire blocks until every key is held or ctx is done. Keys are taken
	// in sorted order.
	Acquire(ctx context.Context, keys []string) (Lease, error)
}

type Lease interface {
	Release(ctx context.Context) error
}

func ProductKey(id catalog.ProductID) string {
	return "product:" + string(id)
}

// ProductKeys returns deduplicated, sorted keys for ids.
func ProductKeys(ids ...catalog.ProductID) []string {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		keys = append(keys, ProductKey(id))
	}
	return Normalize(keys)
}

func Normalize(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	uniq := out[:0]
	for i, k := range out {
		if i > 0 && k == out[i-1] {
			continue
		}
		uniq = append(uniq, k)
	}
	return uniq
}

type scopeKey struct{}

// WithScope records the keys held for the current command.
func WithScope(ctx context.Context, keys []string) context.Context {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return context.WithValue(ctx, scopeKey{}, set)
}

// Covered returns ErrScopeChanged when a lock scope is present in ctx and
// does not include every product. Without a scope it returns nil, which is
// the case for tools that run without a locker.
func Covered(ctx context.Context, ids ...catalog.ProductID) error {
	set, ok := ctx.Value(scopeKey{}).(map[string]struct{})
	if !ok {
		return nil
	}
	for _, id := range ids {
		if _, held := set[ProductKey(id)]; !held {
			return fmt.Errorf("%w: %s", ErrScopeChanged, id)
		}
	}
	return nil
}
