package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	"stagerent/internal/app/uow"
	"stagerent/internal/domain/availability"
	"stagerent/internal/domain/cart"
	"stagerent/internal/domain/catalog"
	"stagerent/internal/domain/issue"
	"stagerent/internal/domain/order"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
// Repositories are stateless; the session travels in the context.
type Factory struct {
	DB *mongo.Database

	products *ProductRepository
	assets   *AssetRepository
	periods  *Registry
	orders   *OrderRepository
	carts    *CartRepository
	issues   *IssueRepository
}

func NewFactory(db *mongo.Database) *Factory {
	return &Factory{
		DB:       db,
		products: NewProductRepository(db),
		assets:   NewAssetRepository(db),
		periods:  NewRegistry(db),
		orders:   NewOrderRepository(db),
		carts:    NewCartRepository(db),
		issues:   NewIssueRepository(db),
	}
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction. Writes use snapshot reads so
// an availability check and the hold it guards see one consistent view.
func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f == nil || f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(readconcern.Snapshot()).SetWriteConcern(f.DB.WriteConcern())
	if opts.ReadOnly {
		txnOpts = txnOpts.SetReadConcern(f.DB.ReadConcern())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{session: session, factory: f}, nil
}

type Unit struct {
	session mongo.Session
	factory *Factory
}

func (u *Unit) Products() catalog.ProductRepository { return u.factory.products }
func (u *Unit) Assets() catalog.AssetRepository     { return u.factory.assets }
func (u *Unit) Availability() availability.Registry { return u.factory.periods }
func (u *Unit) Orders() order.Repository            { return u.factory.orders }
func (u *Unit) Carts() cart.Repository              { return u.factory.carts }
func (u *Unit) Issues() issue.Repository            { return u.factory.issues }

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory      = (*Factory)(nil)
	_ uow.ContextInjector = (*Unit)(nil)
)
