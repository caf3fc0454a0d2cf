package wiring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/dto"
	availabilityapp "stagerent/internal/app/handlers/availability"
	cartapp "stagerent/internal/app/handlers/cart"
	catalogapp "stagerent/internal/app/handlers/catalog"
	"stagerent/internal/app/handlers/checkout"
	ordersapp "stagerent/internal/app/handlers/orders"
	"stagerent/internal/app/principal"
	"stagerent/internal/app/queries"
	domainavailability "stagerent/internal/domain/availability"
	domainorder "stagerent/internal/domain/order"
	"stagerent/internal/domain/shared/daterange"
)

type sentNotification struct {
	To       string
	Template string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Send(_ context.Context, to, template string, _ any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{To: to, Template: template})
	return nil
}

func (n *recordingNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Template)
	}
	return out
}

type harness struct {
	t        *testing.T
	app      *Memory
	notifier *recordingNotifier
	now      time.Time
	seq      int
	mu       sync.Mutex
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, notifier: &recordingNotifier{}, now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	app, err := NewMemory(Deps{
		Notifier: h.notifier,
		Clock:    func() time.Time { return h.clock() },
		IDs:      h.nextID,
	})
	require.NoError(t, err)
	h.app = app
	return h
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

func (h *harness) nextID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	return fmt.Sprintf("id-%03d", h.seq)
}

func admin() context.Context {
	return principal.WithPrincipal(context.Background(), principal.Principal{ID: "ops", Roles: []string{principal.RoleAdmin}})
}

func customer(id string) context.Context {
	return principal.WithPrincipal(context.Background(), principal.Principal{ID: id, Roles: []string{principal.RoleCustomer}})
}

func rng(t *testing.T, start, end string) daterange.DateRange {
	t.Helper()
	r, err := daterange.Parse(start, end)
	require.NoError(t, err)
	return r
}

// product registers a product with n assets and no buffer.
func (h *harness) product(id string, n int) {
	h.t.Helper()
	buffer := 0
	_, err := commands.Dispatch[catalogapp.RegisterProductCommand, dto.Product](admin(), h.app.Commands, catalogapp.RegisterProductCommand{
		ProductID: id, Title: id, DailyRate: 10000, Currency: "KRW", BufferDays: &buffer,
	})
	require.NoError(h.t, err)
	for i := 1; i <= n; i++ {
		_, err := commands.Dispatch[catalogapp.RegisterAssetCommand, dto.Asset](admin(), h.app.Commands, catalogapp.RegisterAssetCommand{
			AssetID: fmt.Sprintf("%s-%d", id, i), ProductID: id, Code: fmt.Sprintf("C%d", i),
		})
		require.NoError(h.t, err)
	}
}

func (h *harness) addToCart(user, productID string, r daterange.DateRange, qty int) dto.Cart {
	h.t.Helper()
	c, err := commands.Dispatch[cartapp.AddItemCommand, dto.Cart](customer(user), h.app.Commands, cartapp.AddItemCommand{
		ProductID: productID, Range: r, Quantity: qty,
	})
	require.NoError(h.t, err)
	return c
}

func (h *harness) checkout(user, cartID, key string) (*dto.Order, error) {
	return commands.Dispatch[checkout.PlaceOrderCommand, *dto.Order](customer(user), h.app.Commands, checkout.PlaceOrderCommand{
		CartID: cartID, DeliveryMethod: "quick", ShippingAddress: "Seoul", IdempotencyKeyV: key,
	})
}

func (h *harness) available(productID string, r daterange.DateRange) int {
	h.t.Helper()
	res, err := queries.Ask[availabilityapp.ProductAvailabilityQuery, dto.ProductAvailability](context.Background(), h.app.Queries, availabilityapp.ProductAvailabilityQuery{
		ProductID: productID, Range: r,
	})
	require.NoError(h.t, err)
	return res.Count
}

func (h *harness) act(orderID, action, reason string) (dto.TransitionResult, error) {
	return commands.Dispatch[ordersapp.ApplyActionCommand, dto.TransitionResult](admin(), h.app.Commands, ordersapp.ApplyActionCommand{
		OrderID: orderID, Action: action, Reason: reason,
	})
}

func TestCheckoutHoldsAssetsAndCancelReleasesThem(t *testing.T) {
	h := newHarness(t)
	h.product("hanbok", 3)
	r := rng(t, "2026-03-10", "2026-03-12")
	require.Equal(t, 3, h.available("hanbok", r))

	c := h.addToCart("alice", "hanbok", r, 2)
	order, err := h.checkout("alice", c.ID, "")
	require.NoError(t, err)
	require.Len(t, order.Rentals, 2)
	assert.Equal(t, string(domainorder.StatusRequested), order.Status)
	assert.Equal(t, int64(2*3*10000+15000), order.Total.Amount)
	assert.Equal(t, 1, h.available("hanbok", r))
	assert.Equal(t, 3, h.available("hanbok", rng(t, "2026-03-13", "2026-03-14")))

	res, err := commands.Dispatch[ordersapp.CancelOrderCommand, dto.TransitionResult](customer("alice"), h.app.Commands, ordersapp.CancelOrderCommand{
		OrderID: order.ID, Reason: "changed plans",
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	require.NotNil(t, res.Order.Cancellation)
	assert.Equal(t, 100, res.Order.Cancellation.RefundRate)
	assert.Equal(t, 3, h.available("hanbok", r))

	assert.Contains(t, h.notifier.templates(), "order.placed")
	assert.Contains(t, h.notifier.templates(), "order.cancelled")
}

func TestCheckoutRejectsOverbookingAndListsEveryLine(t *testing.T) {
	h := newHarness(t)
	h.product("hanbok", 3)
	h.product("fog", 1)
	r := rng(t, "2026-03-10", "2026-03-12")

	h.addToCart("alice", "hanbok", r, 2)
	aliceCart := h.addToCart("alice", "fog", r, 1)
	h.addToCart("bob", "hanbok", r, 2)
	bobCart := h.addToCart("bob", "fog", r, 1)

	_, err := h.checkout("alice", aliceCart.ID, "")
	require.NoError(t, err)
	placed := len(h.notifier.templates())

	_, err = h.checkout("bob", bobCart.ID, "")
	require.Error(t, err)
	var conflict *domainavailability.ConflictError
	require.True(t, errors.As(err, &conflict))
	require.Len(t, conflict.Items, 2)
	assert.Equal(t, 2, conflict.Items[0].Requested)
	assert.Equal(t, 1, conflict.Items[0].Available)
	assert.Equal(t, 0, conflict.Items[1].Available)

	// The failed checkout committed nothing.
	assert.Len(t, h.notifier.templates(), placed)
	assert.Equal(t, 1, h.available("hanbok", r))
	bob, err := queries.Ask[cartapp.GetCartQuery, dto.Cart](customer("bob"), h.app.Queries, cartapp.GetCartQuery{})
	require.NoError(t, err)
	assert.Len(t, bob.Items, 2)
}

func TestConcurrentCheckoutsNeverShareAnAsset(t *testing.T) {
	h := newHarness(t)
	h.product("hanbok", 3)
	r := rng(t, "2026-03-10", "2026-03-12")
	users := []string{"alice", "bob"}
	carts := make(map[string]string)
	for _, u := range users {
		carts[u] = h.addToCart(u, "hanbok", r, 2).ID
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for _, u := range users {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			_, err := h.checkout(user, carts[user], "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domainavailability.ErrAvailabilityConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(u)
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 1, h.available("hanbok", r))
}

func TestDuplicateActionIsReportedUnchanged(t *testing.T) {
	h := newHarness(t)
	h.product("hanbok", 1)
	r := rng(t, "2026-03-10", "2026-03-12")
	c := h.addToCart("alice", "hanbok", r, 1)
	order, err := h.checkout("alice", c.ID, "")
	require.NoError(t, err)

	first, err := h.act(order.ID, "approve", "")
	require.NoError(t, err)
	assert.True(t, first.Changed)
	second, err := h.act(order.ID, "confirm_payment", "")
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, string(domainorder.StatusConfirmed), second.Order.Status)
}

func TestIllegalActionIsRejectedWithoutSideEffects(t *testing.T) {
	h := newHarness(t)
	h.product("hanbok", 1)
	r := rng(t, "2026-03-10", "2026-03-12")
	c := h.addToCart("alice", "hanbok", r, 1)
	order, err := h.checkout("alice", c.ID, "")
	require.NoError(t, err)
	for _, a := range []string{"approve", "prepare", "dispatch"} {
		_, err := h.act(order.ID, a, "")
		require.NoError(t, err, a)
	}

	_, err = h.act(order.ID, "approve", "")
	require.ErrorIs(t, err, domainorder.ErrIllegalTransition)

	_, err = commands.Dispatch[ordersapp.CancelOrderCommand, dto.TransitionResult](customer("alice"), h.app.Commands, ordersapp.CancelOrderCommand{
		OrderID: order.ID, Reason: "too late",
	})
	require.ErrorIs(t, err, domainorder.ErrIllegalTransition)
	assert.Equal(t, 0, h.available("hanbok", r))
}

func TestRejectRequiresReason(t *testing.T) {
	h := newHarness(t)
	h.product("hanbok", 1)
	r := rng(t, "2026-03-10", "2026-03-12")
	c := h.addToCart("alice", "hanbok", r, 1)
	order, err := h.checkout("alice", c.ID, "")
	require.NoError(t, err)

	_, err = h.act(order.ID, "reject", "")
	require.ErrorIs(t, err, domainorder.ErrReasonRequired)
	res, err := h.act(order.ID, "reject", "damaged stock")
	require.NoError(t, err)
	assert.Equal(t, "damaged stock", res.Order.RejectionReason)
	assert.Equal(t, 1, h.available("hanbok", r))
}

func TestExpireUnpaidReleasesHolds(t *testing.T) {
	h := newHarness(t)
	h.product("hanbok", 2)
	r := rng(t, "2026-03-10", "2026-03-12")
	c := h.addToCart("alice", "hanbok", r, 1)
	unpaid, err := h.checkout("alice", c.ID, "")
	require.NoError(t, err)
	c = h.addToCart("bob", "hanbok", r, 1)
	paid, err := h.checkout("bob", c.ID, "")
	require.NoError(t, err)
	_, err = h.act(paid.ID, "confirm_payment", "")
	require.NoError(t, err)
	assert.Equal(t, 0, h.available("hanbok", r))

	_, err = commands.Dispatch[ordersapp.ExpireUnpaidCommand, ordersapp.ExpireUnpaidResult](admin(), h.app.Commands, ordersapp.ExpireUnpaidCommand{})
	require.Error(t, err, "admins cannot run the system sweep directly")

	h.advance(25 * time.Hour)
	res, err := commands.Dispatch[ordersapp.ExpireUnpaidCommand, ordersapp.ExpireUnpaidResult](principal.System(context.Background(), "test"), h.app.Commands, ordersapp.ExpireUnpaidCommand{})
	require.NoError(t, err)
	assert.Equal(t, []string{unpaid.ID}, res.Expired)
	assert.Equal(t, 1, h.available("hanbok", r))
}

func TestCheckoutReplaysIdempotentRequest(t *testing.T) {
	h := newHarness(t)
	h.product("hanbok", 3)
	r := rng(t, "2026-03-10", "2026-03-12")
	c := h.addToCart("alice", "hanbok", r, 1)

	first, err := h.checkout("alice", c.ID, "key-1")
	require.NoError(t, err)
	second, err := h.checkout("alice", c.ID, "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, h.available("hanbok", r))
}

func TestHoldsCannotBeRemovedByHand(t *testing.T) {
	h := newHarness(t)
	h.product("hanbok", 1)
	r := rng(t, "2026-03-10", "2026-03-12")
	c := h.addToCart("alice", "hanbok", r, 1)
	_, err := h.checkout("alice", c.ID, "")
	require.NoError(t, err)

	cal, err := queries.Ask[availabilityapp.CalendarQuery, dto.Calendar](admin(), h.app.Queries, availabilityapp.CalendarQuery{
		Subject: "hanbok-1", Window: rng(t, "2026-03-01", "2026-03-31"),
	})
	require.NoError(t, err)
	require.Len(t, cal.Blocked, 1)

	_, err = commands.Dispatch[availabilityapp.UnblockPeriodCommand, dto.BlockedPeriod](admin(), h.app.Commands, availabilityapp.UnblockPeriodCommand{
		PeriodID: cal.Blocked[0].ID,
	})
	require.ErrorIs(t, err, domainavailability.ErrHoldManaged)
}

func TestManualBlockTakesAssetOffline(t *testing.T) {
	h := newHarness(t)
	h.product("hanbok", 2)
	r := rng(t, "2026-03-10", "2026-03-12")

	block, err := commands.Dispatch[availabilityapp.BlockPeriodCommand, dto.BlockedPeriod](admin(), h.app.Commands, availabilityapp.BlockPeriodCommand{
		AssetID: "hanbok-1", Range: rng(t, "2026-03-11", "2026-03-11"), Reason: "maintenance",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, h.available("hanbok", r))

	_, err = commands.Dispatch[availabilityapp.UnblockPeriodCommand, dto.BlockedPeriod](admin(), h.app.Commands, availabilityapp.UnblockPeriodCommand{PeriodID: block.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, h.available("hanbok", r))
}
