package wiring

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/dto"
	ordersapp "stagerent/internal/app/handlers/orders"
	"stagerent/internal/app/locks"
	"stagerent/internal/app/principal"
	"stagerent/internal/app/uow"
	domainorder "stagerent/internal/domain/order"
	"stagerent/internal/infra/locks/memlock"
	"stagerent/internal/infra/storage/memory"
)

// recordingLocker remembers every key set it was asked for.
type recordingLocker struct {
	inner locks.Locker
	mu    sync.Mutex
	taken [][]string
}

func (l *recordingLocker) Acquire(ctx context.Context, keys []string) (locks.Lease, error) {
	l.mu.Lock()
	l.taken = append(l.taken, append([]string(nil), keys...))
	l.mu.Unlock()
	return l.inner.Acquire(ctx, keys)
}

func (l *recordingLocker) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.taken = nil
}

func (l *recordingLocker) acquired() [][]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]string(nil), l.taken...)
}

// conflictFactory fails order saves with a version conflict while armed and
// notes how many holds the order still had at that moment.
type conflictFactory struct {
	inner       uow.UoWFactory
	armed       *atomic.Bool
	holdsAtSave *atomic.Int64
}

func (f conflictFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	unit, err := f.inner.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &conflictUnit{UnitOfWork: unit, f: f}, nil
}

type conflictUnit struct {
	uow.UnitOfWork
	f conflictFactory
}

func (u *conflictUnit) Orders() domainorder.Repository {
	return &conflictOrders{Repository: u.UnitOfWork.Orders(), unit: u}
}

type conflictOrders struct {
	domainorder.Repository
	unit *conflictUnit
}

func (r *conflictOrders) Save(ctx context.Context, o *domainorder.Order) error {
	if !r.unit.f.armed.Load() {
		return r.Repository.Save(ctx, o)
	}
	held, err := r.unit.UnitOfWork.Availability().ByOrder(ctx, string(o.ID))
	if err != nil {
		return err
	}
	r.unit.f.holdsAtSave.Store(int64(len(held)))
	return uow.ErrConcurrentUpdate
}

type instrumented struct {
	*harness
	locker      *recordingLocker
	armed       *atomic.Bool
	holdsAtSave *atomic.Int64
}

func newInstrumentedHarness(t *testing.T) *instrumented {
	t.Helper()
	h := &harness{t: t, notifier: &recordingNotifier{}, now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	in := &instrumented{
		harness:     h,
		locker:      &recordingLocker{inner: memlock.New()},
		armed:       &atomic.Bool{},
		holdsAtSave: &atomic.Int64{},
	}
	store := memory.NewStore()
	box := memory.NewOutbox(nil)
	app, err := Build(Deps{
		Factory:     conflictFactory{inner: memory.Factory{Store: store, Outbox: box}, armed: in.armed, holdsAtSave: in.holdsAtSave},
		Outbox:      box,
		Idempotency: memory.NewIdempotencyStore(),
		Locker:      in.locker,
		Notifier:    h.notifier,
		Clock:       func() time.Time { return h.clock() },
		IDs:         h.nextID,
	})
	require.NoError(t, err)
	box.Sink = app.Dispatcher
	h.app = &Memory{App: app, Store: store, Outbox: box}
	return in
}

func (h *instrumented) holds(orderID string) []string {
	h.t.Helper()
	unit, err := h.app.Factory.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(h.t, err)
	defer func() { _ = unit.Rollback(context.Background()) }()
	periods, err := unit.Availability().ByOrder(context.Background(), orderID)
	require.NoError(h.t, err)
	ids := make([]string, 0, len(periods))
	for _, p := range periods {
		ids = append(ids, string(p.ID))
	}
	return ids
}

func TestIdempotencyKeyIsScopedToCaller(t *testing.T) {
	h := newHarness(t)
	h.product("hanbok", 3)
	r := rng(t, "2026-03-10", "2026-03-12")

	aliceCart := h.addToCart("alice", "hanbok", r, 1)
	bobCart := h.addToCart("bob", "hanbok", r, 1)

	aliceOrder, err := h.checkout("alice", aliceCart.ID, "k-1")
	require.NoError(t, err)
	bobOrder, err := h.checkout("bob", bobCart.ID, "k-1")
	require.NoError(t, err)

	assert.NotEqual(t, aliceOrder.ID, bobOrder.ID)
	assert.Equal(t, "alice", aliceOrder.UserID)
	assert.Equal(t, "bob", bobOrder.UserID)
	assert.Equal(t, 1, h.available("hanbok", r))

	replay, err := h.checkout("bob", bobCart.ID, "k-1")
	require.NoError(t, err)
	assert.Equal(t, bobOrder.ID, replay.ID)
}

func TestCancelAndSweepTakeProductLocks(t *testing.T) {
	h := newInstrumentedHarness(t)
	h.product("hanbok", 2)
	r := rng(t, "2026-03-10", "2026-03-12")

	c := h.addToCart("alice", "hanbok", r, 1)
	cancelled, err := h.checkout("alice", c.ID, "")
	require.NoError(t, err)
	c = h.addToCart("bob", "hanbok", r, 1)
	_, err = h.checkout("bob", c.ID, "")
	require.NoError(t, err)

	h.locker.reset()
	_, err = commands.Dispatch[ordersapp.CancelOrderCommand, dto.TransitionResult](customer("alice"), h.app.Commands, ordersapp.CancelOrderCommand{
		OrderID: cancelled.ID, Reason: "plans changed",
	})
	require.NoError(t, err)
	require.Len(t, h.locker.acquired(), 1)
	assert.Contains(t, h.locker.acquired()[0], "product:hanbok")

	h.locker.reset()
	h.advance(25 * time.Hour)
	res, err := commands.Dispatch[ordersapp.ExpireUnpaidCommand, ordersapp.ExpireUnpaidResult](principal.System(context.Background(), "test"), h.app.Commands, ordersapp.ExpireUnpaidCommand{})
	require.NoError(t, err)
	assert.Len(t, res.Expired, 1)
	require.Len(t, h.locker.acquired(), 1)
	assert.Contains(t, h.locker.acquired()[0], "product:hanbok")
	assert.Equal(t, 2, h.available("hanbok", r))
}

func TestCancelConflictLeavesHoldsInPlace(t *testing.T) {
	h := newInstrumentedHarness(t)
	h.product("hanbok", 2)
	r := rng(t, "2026-03-10", "2026-03-12")
	c := h.addToCart("alice", "hanbok", r, 1)
	o, err := h.checkout("alice", c.ID, "")
	require.NoError(t, err)
	require.Equal(t, 1, h.available("hanbok", r))

	h.armed.Store(true)
	_, err = commands.Dispatch[ordersapp.CancelOrderCommand, dto.TransitionResult](customer("alice"), h.app.Commands, ordersapp.CancelOrderCommand{
		OrderID: o.ID, Reason: "plans changed",
	})
	require.ErrorIs(t, err, uow.ErrConcurrentUpdate)
	assert.Equal(t, int64(1), h.holdsAtSave.Load(), "holds must be untouched when the order save fails")
	h.armed.Store(false)

	assert.Equal(t, 1, h.available("hanbok", r))
	assert.Len(t, h.holds(o.ID), 1)
}

func TestSweepConflictLeavesHoldsInPlace(t *testing.T) {
	h := newInstrumentedHarness(t)
	h.product("hanbok", 1)
	r := rng(t, "2026-03-10", "2026-03-12")
	c := h.addToCart("alice", "hanbok", r, 1)
	_, err := h.checkout("alice", c.ID, "")
	require.NoError(t, err)

	h.advance(25 * time.Hour)
	h.armed.Store(true)
	_, err = commands.Dispatch[ordersapp.ExpireUnpaidCommand, ordersapp.ExpireUnpaidResult](principal.System(context.Background(), "test"), h.app.Commands, ordersapp.ExpireUnpaidCommand{})
	require.ErrorIs(t, err, uow.ErrConcurrentUpdate)
	assert.Equal(t, int64(1), h.holdsAtSave.Load())
	h.armed.Store(false)
	assert.Equal(t, 0, h.available("hanbok", r))
}
