// Package holds applies the registry side effects an order transition asks
// for. Everything here runs inside the caller's unit of work.
package holds

import (
	"context"
	"fmt"
	"time"

	"stagerent/internal/app/handlers/support"
	"stagerent/internal/app/uow"
	"stagerent/internal/domain/availability"
	"stagerent/internal/domain/order"
	"stagerent/internal/domain/shared/events"
)

type Params struct {
	Actor string
	Now   time.Time
	IDs   support.IDs
}

// Apply performs effect for o and returns the registry events to record.
func Apply(ctx context.Context, unit uow.UnitOfWork, o *order.Order, effect order.HoldEffect, p Params) ([]events.DomainEvent, error) {
	switch effect {
	case order.EffectEnsureHolds:
		return Ensure(ctx, unit, o, p)
	case order.EffectReleaseHolds:
		return Release(ctx, unit, o, p)
	default:
		return nil, nil
	}
}

// Ensure makes sure every rental of o has an order hold. Existing holds are
// left alone. A missing hold is only recreated when the asset is still free.
func Ensure(ctx context.Context, unit uow.UnitOfWork, o *order.Order, p Params) ([]events.DomainEvent, error) {
	existing, err := unit.Availability().ByOrder(ctx, string(o.ID))
	if err != nil {
		return nil, err
	}
	held := make(map[string]struct{}, len(existing))
	for _, bp := range existing {
		held[holdKey(string(bp.AssetID), bp.Range.String())] = struct{}{}
	}

	checker := availability.NewChecker(unit.Availability(), unit.Assets())
	checker.Now = func() time.Time { return p.Now }

	var (
		out       []events.DomainEvent
		conflicts []availability.ConflictItem
	)
	for _, rental := range o.Rentals {
		if _, ok := held[holdKey(string(rental.AssetID), rental.HoldRange.String())]; ok {
			continue
		}
		free, err := checker.IsAvailable(ctx, rental.AssetID, rental.HoldRange)
		if err != nil {
			return nil, err
		}
		if !free {
			conflicts = append(conflicts, availability.ConflictItem{
				ItemID:    rental.ID,
				ProductID: rental.ProductID,
				Range:     rental.Range,
				Requested: 1,
			})
			continue
		}
		ev, err := addHold(ctx, unit, o.ID, rental, p)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if len(conflicts) > 0 {
		return nil, &availability.ConflictError{Items: conflicts}
	}
	return out, nil
}

// Create adds a hold for every rental without re-checking. Checkout calls it
// right after allocating assets under lock.
func Create(ctx context.Context, unit uow.UnitOfWork, o *order.Order, p Params) ([]events.DomainEvent, error) {
	out := make([]events.DomainEvent, 0, len(o.Rentals))
	for _, rental := range o.Rentals {
		ev, err := addHold(ctx, unit, o.ID, rental, p)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// Release removes every order hold of o. It is a no-op when none remain.
func Release(ctx context.Context, unit uow.UnitOfWork, o *order.Order, p Params) ([]events.DomainEvent, error) {
	existing, err := unit.Availability().ByOrder(ctx, string(o.ID))
	if err != nil {
		return nil, err
	}
	removed, err := unit.Availability().RemoveByOrder(ctx, string(o.ID))
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		return nil, nil
	}
	out := make([]events.DomainEvent, 0, len(existing))
	for _, bp := range existing {
		if bp.IsHold() {
			out = append(out, availability.ReleasedEvent(bp, p.Now))
		}
	}
	return out, nil
}

func addHold(ctx context.Context, unit uow.UnitOfWork, orderID order.OrderID, rental order.Rental, p Params) (events.DomainEvent, error) {
	period, err := availability.NewBlockedPeriod(availability.NewPeriodParams{
		ID:        availability.PeriodID(p.IDs.New()),
		AssetID:   rental.AssetID,
		ProductID: rental.ProductID,
		Range:     rental.HoldRange,
		Reason:    availability.ReasonOrder,
		OrderID:   string(orderID),
		CreatedBy: p.Actor,
		Now:       p.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("holds: build period for rental %s: %w", rental.ID, err)
	}
	stored, err := unit.Availability().Add(ctx, period)
	if err != nil {
		return nil, err
	}
	return availability.BlockedEvent(stored, p.Now), nil
}

func holdKey(assetID, r string) string {
	return assetID + "|" + r
}
