package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/dto"
	"stagerent/internal/app/handlers/holds"
	"stagerent/internal/app/handlers/support"
	"stagerent/internal/app/locks"
	"stagerent/internal/app/middleware"
	"stagerent/internal/app/outbox"
	"stagerent/internal/app/principal"
	"stagerent/internal/app/uow"
	domainorder "stagerent/internal/domain/order"
)

const (
	applyActionKey = "orders.apply_action"
	cancelOrderKey = "orders.cancel"
)

// ApplyActionCommand is what the admin console sends for a button press.
type ApplyActionCommand struct {
	OrderID string
	Action  string
	Reason  string
}

func (c ApplyActionCommand) Key() string          { return applyActionKey }
func (c ApplyActionCommand) RequiredRole() string { return principal.RoleAdmin }

func (c ApplyActionCommand) Validate() error {
	action := domainorder.Action(c.Action)
	if _, ok := action.Target(); !ok {
		return fmt.Errorf("%w: %q", domainorder.ErrUnknownAction, c.Action)
	}
	if action.RequiresReason() && strings.TrimSpace(c.Reason) == "" {
		return domainorder.ErrReasonRequired
	}
	return nil
}

// LockScope covers the order's products because re-creating a hold checks
// availability.
func (c ApplyActionCommand) LockScope(ctx context.Context, unit uow.UnitOfWork) ([]string, error) {
	return orderScope(ctx, unit, c.OrderID)
}

// CancelOrderCommand is a customer cancelling their own order.
type CancelOrderCommand struct {
	OrderID string
	Reason  string
}

func (c CancelOrderCommand) Key() string { return cancelOrderKey }

func (c CancelOrderCommand) Validate() error {
	if strings.TrimSpace(c.Reason) == "" {
		return domainorder.ErrReasonRequired
	}
	return nil
}

// LockScope covers the order's products so a concurrent checkout cannot take
// an asset whose hold this command might still restore on rollback.
func (c CancelOrderCommand) LockScope(ctx context.Context, unit uow.UnitOfWork) ([]string, error) {
	return orderScope(ctx, unit, c.OrderID)
}

type Handlers struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	IDs     support.IDs
	Logger  *slog.Logger
}

func (h *Handlers) ApplyAction(ctx context.Context, cmd ApplyActionCommand) (dto.TransitionResult, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return dto.TransitionResult{}, err
	}
	o, err := unit.Orders().ByID(ctx, domainorder.OrderID(cmd.OrderID))
	if err != nil {
		return dto.TransitionResult{}, err
	}
	if err := locks.Covered(ctx, o.ProductIDs()...); err != nil {
		return dto.TransitionResult{}, err
	}
	target, _ := domainorder.Action(cmd.Action).Target()
	return h.transition(ctx, unit, o, target, cmd.Reason)
}

func (h *Handlers) Cancel(ctx context.Context, cmd CancelOrderCommand) (dto.TransitionResult, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return dto.TransitionResult{}, err
	}
	o, err := unit.Orders().ByID(ctx, domainorder.OrderID(cmd.OrderID))
	if err != nil {
		return dto.TransitionResult{}, err
	}
	caller, _ := principal.FromContext(ctx)
	if o.UserID != caller.ID {
		return dto.TransitionResult{}, domainorder.ErrNotOwner
	}
	if err := locks.Covered(ctx, o.ProductIDs()...); err != nil {
		return dto.TransitionResult{}, err
	}
	if o.Status != domainorder.StatusCancelled && !domainorder.UserCancellable(o.Status) {
		return dto.TransitionResult{}, &domainorder.IllegalTransitionError{From: o.Status, To: domainorder.StatusCancelled}
	}
	return h.transition(ctx, unit, o, domainorder.StatusCancelled, cmd.Reason)
}

// transition applies the status change and its hold effect in the caller's
// unit. The order is saved before holds change so a version conflict aborts
// with the registry untouched. A duplicate request is reported as unchanged
// rather than failed.
func (h *Handlers) transition(ctx context.Context, unit uow.UnitOfWork, o *domainorder.Order, target domainorder.Status, reason string) (dto.TransitionResult, error) {
	caller, _ := principal.FromContext(ctx)
	now := h.Clock.Now()
	from := o.Status
	effect, err := o.Transition(target, domainorder.TransitionParams{Reason: reason, Actor: caller.Actor(), Now: now})
	if err != nil {
		var already *domainorder.AlreadyInStateError
		if errors.As(err, &already) {
			h.logger().Info("order already in status", "order_id", o.ID, "status", already.Status)
			return dto.TransitionResult{Order: dto.MapOrder(o), Changed: false, Effect: domainorder.EffectNone.String()}, nil
		}
		return dto.TransitionResult{}, err
	}
	if err := unit.Orders().Save(ctx, o); err != nil {
		return dto.TransitionResult{}, err
	}
	holdEvents, err := holds.Apply(ctx, unit, o, effect, holds.Params{Actor: caller.Actor(), Now: now, IDs: h.IDs})
	if err != nil {
		return dto.TransitionResult{}, err
	}
	if err := outbox.RecordFrom(ctx, h.Outbox, h.Encoder, o); err != nil {
		return dto.TransitionResult{}, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, holdEvents); err != nil {
		return dto.TransitionResult{}, err
	}
	h.logger().Info("order transitioned", "order_id", o.ID, "from", from, "to", o.Status, "effect", effect.String(), "actor", caller.Actor())
	return dto.TransitionResult{Order: dto.MapOrder(o), Changed: true, Effect: effect.String()}, nil
}

func (h *Handlers) Register(bus *commands.InMemoryBus) {
	commands.RegisterHandler(bus, applyActionKey, commands.HandlerFunc[ApplyActionCommand, dto.TransitionResult](h.ApplyAction))
	commands.RegisterHandler(bus, cancelOrderKey, commands.HandlerFunc[CancelOrderCommand, dto.TransitionResult](h.Cancel))
	commands.RegisterHandler(bus, expireUnpaidKey, commands.HandlerFunc[ExpireUnpaidCommand, ExpireUnpaidResult](h.ExpireUnpaid))
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func orderScope(ctx context.Context, unit uow.UnitOfWork, orderID string) ([]string, error) {
	o, err := unit.Orders().ByID(ctx, domainorder.OrderID(orderID))
	if err != nil {
		return nil, err
	}
	return locks.ProductKeys(o.ProductIDs()...), nil
}

var (
	_ middleware.LockScoped     = ApplyActionCommand{}
	_ middleware.LockScoped     = CancelOrderCommand{}
	_ middleware.SelfValidating = CancelOrderCommand{}
	_ middleware.LockScoped     = ExpireUnpaidCommand{}
)
