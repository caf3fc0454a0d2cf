package queries

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type route struct {
	key    string
	result string
	run    func(ctx context.Context, q Query) (any, error)
}

// InMemoryBus routes each query to the single handler registered under its
// key. Registration happens at startup; Ask is safe for concurrent use.
type InMemoryBus struct {
	mu     sync.RWMutex
	routes map[string]route
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{routes: make(map[string]route)}
}

func (b *InMemoryBus) add(r route) {
	if r.key == "" {
		panic("queries: empty key registration")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if prev, exists := b.routes[r.key]; exists {
		panic(fmt.Sprintf("%v: %s (already returns %s)", ErrDuplicateKey, r.key, prev.result))
	}
	b.routes[r.key] = r
}

func (b *InMemoryBus) lookup(key string) (route, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.routes[key]
	return r, ok
}

func (b *InMemoryBus) Ask(ctx context.Context, query Query) (any, error) {
	r, ok := b.lookup(query.Key())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, query.Key())
	}
	return r.run(ctx, query)
}

// Routes maps every registered key to the result type its handler returns.
func (b *InMemoryBus) Routes() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]string, len(b.routes))
	for k, r := range b.routes {
		out[k] = r.result
	}
	return out
}

// Keys lists registered query keys in order.
func (b *InMemoryBus) Keys() []string {
	routes := b.Routes()
	keys := make([]string, 0, len(routes))
	for k := range routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RegisterHandler binds a typed handler to key. A query of another type that
// reports the same key is rejected with ErrInvalidQuery.
func RegisterHandler[Q Query, R any](bus *InMemoryBus, key string, handler Handler[Q, R]) {
	if bus == nil {
		panic("queries: nil bus")
	}
	var zero R
	bus.add(route{
		key:    key,
		result: fmt.Sprintf("%T", zero),
		run: func(ctx context.Context, raw Query) (any, error) {
			q, ok := any(raw).(Q)
			if !ok {
				return nil, fmt.Errorf("%w: %s got %T", ErrInvalidQuery, key, raw)
			}
			return handler.Handle(ctx, q)
		},
	})
}
