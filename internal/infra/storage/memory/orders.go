package memory

import (
	"context"
	"sort"
	"time"

	"stagerent/internal/app/uow"
	"stagerent/internal/domain/cart"
	"stagerent/internal/domain/order"
	"stagerent/internal/domain/shared/events"
)

type OrderRepository struct {
	store   *Store
	journal *journal
}

func (r *OrderRepository) ByID(ctx context.Context, id order.OrderID) (*order.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	o, ok := r.store.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

// Save bumps Version; a stale Version fails with uow.ErrConcurrentUpdate.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	prev, existed := r.store.orders[o.ID]
	if existed && prev.Version != o.Version {
		return uow.ErrConcurrentUpdate
	}
	o.Version++
	id := o.ID
	r.store.orders[id] = cloneOrder(o)
	r.journal.record(func() {
		if existed {
			r.store.orders[id] = prev
		} else {
			delete(r.store.orders, id)
		}
	})
	return nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	return r.filter(func(o *order.Order) bool { return o.UserID == userID }), nil
}

func (r *OrderRepository) ListByStatus(ctx context.Context, status order.Status) ([]*order.Order, error) {
	return r.filter(func(o *order.Order) bool { return status == "" || o.Status == status }), nil
}

func (r *OrderRepository) ListAwaitingPayment(ctx context.Context, cutoff time.Time) ([]*order.Order, error) {
	return r.filter(func(o *order.Order) bool { return o.PaymentOverdue(cutoff) }), nil
}

func (r *OrderRepository) filter(keep func(*order.Order) bool) []*order.Order {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*order.Order, 0)
	for _, o := range r.store.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type CartRepository struct {
	store   *Store
	journal *journal
}

func (r *CartRepository) ByID(ctx context.Context, id cart.CartID) (*cart.Cart, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	c, ok := r.store.carts[id]
	if !ok {
		return nil, cart.ErrCartNotFound
	}
	return cloneCart(c), nil
}

func (r *CartRepository) ByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, c := range r.store.carts {
		if c.UserID == userID {
			return cloneCart(c), nil
		}
	}
	return nil, cart.ErrCartNotFound
}

func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	prev, existed := r.store.carts[c.ID]
	if existed && prev.Version != c.Version {
		return uow.ErrConcurrentUpdate
	}
	c.Version++
	id := c.ID
	r.store.carts[id] = cloneCart(c)
	r.journal.record(func() {
		if existed {
			r.store.carts[id] = prev
		} else {
			delete(r.store.carts, id)
		}
	})
	return nil
}

func cloneOrder(o *order.Order) *order.Order {
	c := *o
	c.EventRecorder = events.EventRecorder{}
	c.Rentals = append([]order.Rental(nil), o.Rentals...)
	c.History = append([]order.StatusChange(nil), o.History...)
	if o.Cancellation != nil {
		cancellation := *o.Cancellation
		c.Cancellation = &cancellation
	}
	return &c
}

func cloneCart(c *cart.Cart) *cart.Cart {
	out := *c
	out.Items = append([]cart.Item(nil), c.Items...)
	return &out
}
