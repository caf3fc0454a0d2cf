package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/handlers/orders"
	"stagerent/internal/app/principal"
)

type busFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f busFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) { return f(ctx, cmd) }

func TestExpireUnpaidDispatchesAsSystem(t *testing.T) {
	var got principal.Principal
	var key string
	bus := busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		got, _ = principal.FromContext(ctx)
		key = cmd.Key()
		return orders.ExpireUnpaidResult{Expired: []string{"o-1"}}, nil
	})

	s, err := New(bus, "0 */5 * * * *", nil)
	require.NoError(t, err)
	s.ExpireUnpaid(context.Background())

	require.Equal(t, orders.ExpireUnpaidCommand{}.Key(), key)
	require.True(t, got.HasRole(principal.RoleSystem))
	require.Equal(t, "system:expire-unpaid", got.ID)
}

func TestNewRejectsBadExpression(t *testing.T) {
	_, err := New(busFunc(nil), "every now and then", nil)
	require.Error(t, err)
}
