package uow

import (
	"context"
	"errors"

	"stagerent/internal/domain/availability"
	"stagerent/internal/domain/cart"
	"stagerent/internal/domain/catalog"
	"stagerent/internal/domain/issue"
	"stagerent/internal/domain/order"
)

// UnitOfWork coordinates repositories inside a transaction boundary. Every
// write a command performs goes through one unit so it commits or rolls back
// as a whole.
type UnitOfWork interface {
	Products() catalog.ProductRepository
	Assets() catalog.AssetRepository
	Availability() availability.Registry
	Orders() order.Repository
	Carts() cart.Repository
	Issues() issue.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that carry driver state (a Mongo
// session) through the context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

// Bind returns ctx carrying unit and any driver state it injects.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}

// ErrConcurrentUpdate is returned by Save when the stored version moved on
// since the aggregate was loaded.
var ErrConcurrentUpdate = errors.New("uow: aggregate was modified concurrently")
