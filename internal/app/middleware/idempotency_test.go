package middleware

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/principal"
)

type mapStore struct {
	mu   sync.Mutex
	recs map[string]IdempotencyRecord
}

func (s *mapStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[key]
	return rec, ok, nil
}

func (s *mapStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.Key] = rec
	return nil
}

type placeCmd struct{ key string }

func (placeCmd) Key() string              { return "test.place" }
func (c placeCmd) IdempotencyKey() string { return c.key }
func (placeCmd) ResultPrototype() any     { return new(string) }

func countingBus(calls *int) commands.Bus {
	return commandFunc(func(ctx context.Context, _ commands.Command) (any, error) {
		*calls++
		caller, _ := principal.FromContext(ctx)
		return "order-of-" + caller.ID, nil
	})
}

func as(id string) context.Context {
	return principal.WithPrincipal(context.Background(), principal.Principal{ID: id, Roles: []string{principal.RoleCustomer}})
}

func TestIdempotencyReplaysForSameCaller(t *testing.T) {
	calls := 0
	bus := Idempotency(&mapStore{recs: map[string]IdempotencyRecord{}}, nil)(countingBus(&calls))

	first, err := bus.Dispatch(as("alice"), placeCmd{key: "k-1"})
	require.NoError(t, err)
	again, err := bus.Dispatch(as("alice"), placeCmd{key: "k-1"})
	require.NoError(t, err)

	assert.Equal(t, "order-of-alice", first)
	assert.Equal(t, "order-of-alice", *again.(*string))
	assert.Equal(t, 1, calls)
}

func TestIdempotencyKeysDoNotCrossCallers(t *testing.T) {
	calls := 0
	store := &mapStore{recs: map[string]IdempotencyRecord{}}
	bus := Idempotency(store, nil)(countingBus(&calls))

	_, err := bus.Dispatch(as("alice"), placeCmd{key: "k-1"})
	require.NoError(t, err)
	res, err := bus.Dispatch(as("bob"), placeCmd{key: "k-1"})
	require.NoError(t, err)

	assert.Equal(t, "order-of-bob", res)
	assert.Equal(t, 2, calls)
	assert.Len(t, store.recs, 2)
}

func TestIdempotencyIgnoresEmptyKey(t *testing.T) {
	calls := 0
	bus := Idempotency(&mapStore{recs: map[string]IdempotencyRecord{}}, nil)(countingBus(&calls))
	for i := 0; i < 2; i++ {
		_, err := bus.Dispatch(as("alice"), placeCmd{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}
