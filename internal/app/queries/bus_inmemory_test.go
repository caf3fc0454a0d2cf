package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoQuery struct{ Value string }

func (echoQuery) Key() string { return "test.echo" }

type impostorQuery struct{}

func (impostorQuery) Key() string { return "test.echo" }

type unknownQuery struct{}

func (unknownQuery) Key() string { return "test.unknown" }

func newEchoBus() *InMemoryBus {
	bus := NewInMemoryBus()
	RegisterHandler(bus, "test.echo", HandlerFunc[echoQuery, string](func(_ context.Context, q echoQuery) (string, error) {
		return "echo:" + q.Value, nil
	}))
	return bus
}

func TestAskRoutesByKey(t *testing.T) {
	got, err := Ask[echoQuery, string](context.Background(), newEchoBus(), echoQuery{Value: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", got)
}

func TestAskErrors(t *testing.T) {
	bus := newEchoBus()

	_, err := bus.Ask(context.Background(), unknownQuery{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = bus.Ask(context.Background(), impostorQuery{})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = Ask[echoQuery, int](context.Background(), bus, echoQuery{})
	assert.ErrorIs(t, err, ErrResultType)

	_, err = Ask[echoQuery, string](context.Background(), nil, echoQuery{})
	assert.ErrorIs(t, err, ErrNilBus)
}

func TestRegisterRejectsDuplicateAndEmptyKeys(t *testing.T) {
	bus := newEchoBus()
	assert.Panics(t, func() {
		RegisterHandler(bus, "test.echo", HandlerFunc[echoQuery, string](func(context.Context, echoQuery) (string, error) { return "", nil }))
	})
	assert.Panics(t, func() {
		RegisterHandler(bus, "", HandlerFunc[echoQuery, string](func(context.Context, echoQuery) (string, error) { return "", nil }))
	})
	assert.Equal(t, []string{"test.echo"}, bus.Keys())
	assert.Equal(t, map[string]string{"test.echo": "string"}, bus.Routes())
}
