// Package wiring assembles the command and query buses over a chosen storage
// backend. The binaries and the end-to-end tests share it.
package wiring

import (
	"errors"
	"log/slog"

	"stagerent/internal/app/commands"
	availabilityapp "stagerent/internal/app/handlers/availability"
	cartapp "stagerent/internal/app/handlers/cart"
	catalogapp "stagerent/internal/app/handlers/catalog"
	"stagerent/internal/app/handlers/checkout"
	issuesapp "stagerent/internal/app/handlers/issues"
	"stagerent/internal/app/handlers/notifications"
	ordersapp "stagerent/internal/app/handlers/orders"
	"stagerent/internal/app/handlers/support"
	"stagerent/internal/app/locks"
	"stagerent/internal/app/middleware"
	"stagerent/internal/app/notify"
	"stagerent/internal/app/outbox"
	"stagerent/internal/app/policies"
	"stagerent/internal/app/queries"
	"stagerent/internal/app/uow"
	ginserver "stagerent/internal/infra/http/gin"
	"stagerent/internal/infra/locks/memlock"
	"stagerent/internal/infra/notifier"
	"stagerent/internal/infra/storage/memory"
)

var errIncomplete = errors.New("wiring: factory, outbox, idempotency store and locker are required")

// Deps are the storage-specific pieces. Everything else is built here.
type Deps struct {
	Factory     uow.UoWFactory
	Outbox      outbox.Outbox
	Idempotency middleware.IdempotencyStore
	Locker      locks.Locker
	Notifier    policies.Notifier
	Clock       support.Clock
	IDs         support.IDs
	Logger      *slog.Logger
}

type App struct {
	Commands commands.Bus
	Queries  queries.Bus
	// Dispatcher delivers committed records in-process. Memory mode wires it
	// as the outbox sink; the relay worker uses it when no broker is set.
	Dispatcher *notify.Dispatcher
	Factory    uow.UoWFactory
}

// Build registers every handler and wraps the buses. Command middleware runs
// outermost first: logging, authorization, idempotency, validation, locking,
// outbox flush, transaction.
func Build(d Deps) (*App, error) {
	if d.Factory == nil || d.Outbox == nil || d.Idempotency == nil || d.Locker == nil {
		return nil, errIncomplete
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	encoder := outbox.JSONEventEncoder{IDGenerator: d.IDs}

	cmdBus := commands.NewInMemoryBus()
	qryBus := queries.NewInMemoryBus()

	(&catalogapp.Handlers{Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, IDs: d.IDs, Logger: logger}).Register(cmdBus)
	(&catalogapp.QueryHandlers{UoWFactory: d.Factory}).Register(qryBus)
	(&availabilityapp.Handlers{Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, IDs: d.IDs, Logger: logger}).Register(cmdBus)
	(&availabilityapp.QueryHandlers{UoWFactory: d.Factory, Clock: d.Clock}).Register(qryBus)
	(&cartapp.Handlers{UoWFactory: d.Factory, Clock: d.Clock, IDs: d.IDs, Logger: logger}).Register(cmdBus, qryBus)
	(&checkout.Handler{Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, IDs: d.IDs, Logger: logger}).Register(cmdBus)
	(&ordersapp.Handlers{Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, IDs: d.IDs, Logger: logger}).Register(cmdBus)
	(&ordersapp.QueryHandlers{UoWFactory: d.Factory}).Register(qryBus)
	(&issuesapp.Handlers{Outbox: d.Outbox, Encoder: encoder, Clock: d.Clock, IDs: d.IDs, Logger: logger}).Register(cmdBus)
	(&issuesapp.QueryHandlers{UoWFactory: d.Factory}).Register(qryBus)

	dispatcher := notify.NewDispatcher(logger)
	Subscribe(dispatcher, d.Notifier, logger)

	return &App{
		Commands: middleware.ChainCommands(cmdBus,
			middleware.Logging(logger),
			middleware.Authorization(middleware.RoleAuthorizer{}),
			middleware.Idempotency(d.Idempotency, nil),
			middleware.Validation(middleware.SelfValidator{}),
			middleware.Locking(d.Locker, d.Factory, logger),
			middleware.OutboxFlush(d.Outbox, logger),
			middleware.Transaction(d.Factory, nil),
		),
		Queries: middleware.ChainQueries(qryBus,
			middleware.QueryAuthorization(middleware.RoleAuthorizer{}),
			middleware.QueryValidation(middleware.SelfValidator{}),
		),
		Dispatcher: dispatcher,
		Factory:    d.Factory,
	}, nil
}

// Subscribe attaches the notification policy to d. A nil notifier falls back
// to logging.
func Subscribe(d *notify.Dispatcher, n policies.Notifier, logger *slog.Logger) {
	if n == nil {
		n = notifier.LogNotifier{Logger: logger}
	}
	policy := &notifications.Policy{Notifier: n, Logger: logger}
	for _, name := range policy.Events() {
		d.Subscribe(name, policy.Handle)
	}
}

// Memory is the single-process setup: in-memory store, outbox flushed straight
// into the dispatcher.
type Memory struct {
	*App
	Store  *memory.Store
	Outbox *memory.Outbox
}

// NewMemory builds an App over fresh in-memory storage. A nil locker selects
// the in-process one.
func NewMemory(d Deps) (*Memory, error) {
	store := memory.NewStore()
	box := memory.NewOutbox(nil)
	d.Factory = memory.Factory{Store: store, Outbox: box}
	d.Outbox = box
	if d.Idempotency == nil {
		d.Idempotency = memory.NewIdempotencyStore()
	}
	if d.Locker == nil {
		d.Locker = memlock.New()
	}
	app, err := Build(d)
	if err != nil {
		return nil, err
	}
	box.Sink = app.Dispatcher
	return &Memory{App: app, Store: store, Outbox: box}, nil
}

// HTTPHandlers binds the gin handlers to the buses.
func (a *App) HTTPHandlers(logger *slog.Logger) ginserver.Handlers {
	return ginserver.Handlers{
		Catalog:        ginserver.CatalogHandler{Queries: a.Queries},
		Availability:   ginserver.AvailabilityHandler{Queries: a.Queries},
		Cart:           ginserver.CartHandler{Commands: a.Commands, Queries: a.Queries},
		Checkout:       ginserver.CheckoutHandler{Commands: a.Commands, Queries: a.Queries},
		Orders:         ginserver.OrderHandler{Commands: a.Commands, Queries: a.Queries},
		Admin:          ginserver.AdminHandler{Commands: a.Commands, Queries: a.Queries},
		Issues:         ginserver.IssueHandler{Commands: a.Commands, Queries: a.Queries},
		AuthMiddleware: ginserver.HeaderAuth{Logger: logger}.Handle,
	}
}
