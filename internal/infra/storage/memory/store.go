package memory

import (
	"context"
	"errors"
	"sync"

	"stagerent/internal/app/uow"
	"stagerent/internal/domain/availability"
	"stagerent/internal/domain/cart"
	"stagerent/internal/domain/catalog"
	"stagerent/internal/domain/issue"
	"stagerent/internal/domain/order"
)

// Store holds every aggregate for the in-memory mode. Repositories copy on
// the way in and out so that rollback can restore previous values.
type Store struct {
	mu       sync.RWMutex
	products map[catalog.ProductID]*catalog.Product
	assets   map[catalog.AssetID]*catalog.Asset
	periods  map[availability.PeriodID]availability.BlockedPeriod
	orders   map[order.OrderID]*order.Order
	carts    map[cart.CartID]*cart.Cart
	issues   map[issue.IssueID]*issue.RentalIssue
}

func NewStore() *Store {
	return &Store{
		products: make(map[catalog.ProductID]*catalog.Product),
		assets:   make(map[catalog.AssetID]*catalog.Asset),
		periods:  make(map[availability.PeriodID]availability.BlockedPeriod),
		orders:   make(map[order.OrderID]*order.Order),
		carts:    make(map[cart.CartID]*cart.Cart),
		issues:   make(map[issue.IssueID]*issue.RentalIssue),
	}
}

// journal collects undo steps for one unit. Steps run in reverse on
// rollback while the store lock is held.
type journal struct {
	mu   sync.Mutex
	undo []func()
}

func (j *journal) record(step func()) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.undo = append(j.undo, step)
	j.mu.Unlock()
}

func (j *journal) drain() []func() {
	j.mu.Lock()
	defer j.mu.Unlock()
	steps := j.undo
	j.undo = nil
	return steps
}

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory opens units over a shared Store. Outbox is optional.
type Factory struct {
	Store  *Store
	Outbox *Outbox
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	u := &Unit{store: f.Store, outbox: f.Outbox, readOnly: opts.ReadOnly, journal: &journal{}}
	return u, nil
}

// Unit provides no isolation between concurrent units; writers that must
// not interleave are serialised by the lock middleware.
type Unit struct {
	store    *Store
	outbox   *Outbox
	readOnly bool
	journal  *journal

	mu     sync.Mutex
	staged []stagedRecord
	done   bool
}

func (u *Unit) Products() catalog.ProductRepository {
	return &ProductRepository{store: u.store, journal: u.journal}
}

func (u *Unit) Assets() catalog.AssetRepository {
	return &AssetRepository{store: u.store, journal: u.journal}
}

func (u *Unit) Availability() availability.Registry {
	return &Registry{store: u.store, journal: u.journal}
}

func (u *Unit) Orders() order.Repository {
	return &OrderRepository{store: u.store, journal: u.journal}
}

func (u *Unit) Carts() cart.Repository {
	return &CartRepository{store: u.store, journal: u.journal}
}

func (u *Unit) Issues() issue.Repository {
	return &IssueRepository{store: u.store, journal: u.journal}
}

var ErrUnitClosed = errors.New("memory: unit already finished")

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return ErrUnitClosed
	}
	u.done = true
	staged := u.staged
	u.staged = nil
	u.mu.Unlock()

	u.journal.drain()
	if u.outbox != nil {
		u.outbox.enqueue(staged)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return nil
	}
	u.done = true
	u.staged = nil
	u.mu.Unlock()

	steps := u.journal.drain()
	if len(steps) == 0 {
		return nil
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	for i := len(steps) - 1; i >= 0; i-- {
		steps[i]()
	}
	return nil
}

func (u *Unit) stage(rec stagedRecord) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.staged = append(u.staged, rec)
}

var _ uow.UoWFactory = Factory{}
