package orders

import (
	"context"
	"time"

	"stagerent/internal/app/handlers/holds"
	"stagerent/internal/app/locks"
	"stagerent/internal/app/outbox"
	"stagerent/internal/app/principal"
	"stagerent/internal/app/uow"
	"stagerent/internal/domain/catalog"
	domainorder "stagerent/internal/domain/order"
)

const expireUnpaidKey = "orders.expire_unpaid"

// unpaidHorizon lists every order still waiting for a deposit, due or not.
var unpaidHorizon = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// ExpireUnpaidCommand expires every order whose deposit deadline passed.
type ExpireUnpaidCommand struct{}

func (c ExpireUnpaidCommand) Key() string          { return expireUnpaidKey }
func (c ExpireUnpaidCommand) RequiredRole() string { return principal.RoleSystem }

// LockScope covers the products of every unpaid order. Orders placed after
// the scope was read trip locks.ErrScopeChanged and the sweep is retried.
func (c ExpireUnpaidCommand) LockScope(ctx context.Context, unit uow.UnitOfWork) ([]string, error) {
	waiting, err := unit.Orders().ListAwaitingPayment(ctx, unpaidHorizon)
	if err != nil {
		return nil, err
	}
	var ids []catalog.ProductID
	for _, o := range waiting {
		ids = append(ids, o.ProductIDs()...)
	}
	return locks.ProductKeys(ids...), nil
}

type ExpireUnpaidResult struct {
	Expired []string `json:"expired"`
}

func (h *Handlers) ExpireUnpaid(ctx context.Context, _ ExpireUnpaidCommand) (ExpireUnpaidResult, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return ExpireUnpaidResult{}, err
	}
	now := h.Clock.Now()
	overdue, err := unit.Orders().ListAwaitingPayment(ctx, now)
	if err != nil {
		return ExpireUnpaidResult{}, err
	}
	caller, _ := principal.FromContext(ctx)
	result := ExpireUnpaidResult{Expired: make([]string, 0, len(overdue))}
	for _, o := range overdue {
		if !o.PaymentOverdue(now) {
			continue
		}
		if err := locks.Covered(ctx, o.ProductIDs()...); err != nil {
			return ExpireUnpaidResult{}, err
		}
		effect, err := o.Transition(domainorder.StatusExpired, domainorder.TransitionParams{
			Reason: "deposit not received",
			Actor:  caller.Actor(),
			Now:    now,
		})
		if err != nil {
			return ExpireUnpaidResult{}, err
		}
		if err := unit.Orders().Save(ctx, o); err != nil {
			return ExpireUnpaidResult{}, err
		}
		holdEvents, err := holds.Apply(ctx, unit, o, effect, holds.Params{Actor: caller.Actor(), Now: now, IDs: h.IDs})
		if err != nil {
			return ExpireUnpaidResult{}, err
		}
		if err := outbox.RecordFrom(ctx, h.Outbox, h.Encoder, o); err != nil {
			return ExpireUnpaidResult{}, err
		}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, holdEvents); err != nil {
			return ExpireUnpaidResult{}, err
		}
		result.Expired = append(result.Expired, string(o.ID))
	}
	if len(result.Expired) > 0 {
		h.logger().Info("unpaid orders expired", "count", len(result.Expired))
	}
	return result, nil
}
