// Package checkout turns a cart into an order. Allocation and hold creation
// happen in one unit of work while the Locking middleware holds every product
// in the cart, so two checkouts can never take the same asset.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/dto"
	"stagerent/internal/app/handlers/holds"
	"stagerent/internal/app/handlers/support"
	"stagerent/internal/app/locks"
	"stagerent/internal/app/middleware"
	"stagerent/internal/app/outbox"
	"stagerent/internal/app/principal"
	"stagerent/internal/app/uow"
	domainavailability "stagerent/internal/domain/availability"
	domaincart "stagerent/internal/domain/cart"
	domaincatalog "stagerent/internal/domain/catalog"
	domainorder "stagerent/internal/domain/order"
	"stagerent/internal/domain/pricing"
	"stagerent/internal/domain/shared/daterange"
)

const placeOrderKey = "checkout.place_order"

var ErrCartRequired = errors.New("checkout: cart id is required")

type PlaceOrderCommand struct {
	CartID          string
	DeliveryMethod  string
	ShippingAddress string
	DeliveryNotes   string
	IdempotencyKeyV string
}

func (c PlaceOrderCommand) Key() string { return placeOrderKey }

func (c PlaceOrderCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c PlaceOrderCommand) ResultPrototype() any { return &dto.Order{} }

func (c PlaceOrderCommand) Validate() error {
	if strings.TrimSpace(c.CartID) == "" {
		return ErrCartRequired
	}
	_, err := pricing.ParseDeliveryMethod(c.DeliveryMethod)
	return err
}

// LockScope is every product currently in the cart.
func (c PlaceOrderCommand) LockScope(ctx context.Context, unit uow.UnitOfWork) ([]string, error) {
	cart, err := unit.Carts().ByID(ctx, domaincart.CartID(c.CartID))
	if err != nil {
		return nil, err
	}
	return locks.ProductKeys(cart.ProductIDs()...), nil
}

type Handler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   support.Clock
	IDs     support.IDs
	Logger  *slog.Logger
}

// Handle re-validates every cart line, allocates assets first-fit and creates
// the order with one hold per rental. Any unsatisfiable line fails the whole
// checkout with a *ConflictError naming all of them.
func (h *Handler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*dto.Order, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	cart, err := unit.Carts().ByID(ctx, domaincart.CartID(cmd.CartID))
	if err != nil {
		return nil, err
	}
	caller, _ := principal.FromContext(ctx)
	if cart.UserID != caller.ID && !caller.HasRole(principal.RoleAdmin) {
		return nil, fmt.Errorf("%w: cart %s", middleware.ErrForbidden, cart.ID)
	}
	if cart.Empty() {
		return nil, domaincart.ErrEmpty
	}
	if err := locks.Covered(ctx, cart.ProductIDs()...); err != nil {
		return nil, err
	}

	now := h.Clock.Now()
	rentals, conflicts, err := h.allocate(ctx, unit, cart, now)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		h.logger().Info("checkout rejected", "cart_id", cart.ID, "conflicts", len(conflicts))
		return nil, &domainavailability.ConflictError{Items: conflicts}
	}

	method, _ := pricing.ParseDeliveryMethod(cmd.DeliveryMethod)
	o, err := domainorder.New(domainorder.CreateParams{
		ID:              domainorder.OrderID(h.IDs.New()),
		UserID:          cart.UserID,
		CartID:          string(cart.ID),
		Rentals:         rentals,
		DeliveryMethod:  method,
		ShippingAddress: cmd.ShippingAddress,
		DeliveryNotes:   cmd.DeliveryNotes,
		Currency:        rentals[0].DailyRate.Currency,
		Now:             now,
		NewRentalID:     h.IDs.New,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Orders().Save(ctx, o); err != nil {
		return nil, err
	}
	holdEvents, err := holds.Create(ctx, unit, o, holds.Params{Actor: caller.Actor(), Now: now, IDs: h.IDs})
	if err != nil {
		return nil, err
	}
	cart.Clear(now)
	if err := unit.Carts().Save(ctx, cart); err != nil {
		return nil, err
	}

	if err := outbox.RecordFrom(ctx, h.Outbox, h.Encoder, o); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, holdEvents); err != nil {
		return nil, err
	}
	h.logger().Info("order placed", "order_id", o.ID, "user_id", o.UserID, "rentals", len(o.Rentals), "total", o.TotalAmount.Amount)
	out := dto.MapOrder(o)
	return &out, nil
}

// allocate picks assets for every line. Assets taken by an earlier line of
// the same cart are not offered again for overlapping ranges.
func (h *Handler) allocate(ctx context.Context, unit uow.UnitOfWork, cart *domaincart.Cart, now time.Time) ([]domainorder.RentalParams, []domainavailability.ConflictItem, error) {
	checker := domainavailability.NewChecker(unit.Availability(), unit.Assets())
	checker.Now = func() time.Time { return now }

	products := make(map[domaincatalog.ProductID]*domaincatalog.Product)
	taken := make(map[domaincatalog.AssetID][]daterange.DateRange)
	var (
		rentals   []domainorder.RentalParams
		conflicts []domainavailability.ConflictItem
	)
	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok {
			var err error
			product, err = unit.Products().ByID(ctx, item.ProductID)
			if err != nil {
				return nil, nil, err
			}
			products[item.ProductID] = product
		}
		holdRange := item.Range.Extend(product.BufferDays)
		free, err := checker.AvailableAssets(ctx, product.ID, holdRange, 0)
		if err != nil {
			return nil, nil, err
		}
		picked := make([]*domaincatalog.Asset, 0, item.Quantity)
		for _, asset := range free {
			if overlapsAny(taken[asset.ID], holdRange) {
				continue
			}
			picked = append(picked, asset)
			if len(picked) == item.Quantity {
				break
			}
		}
		if len(picked) < item.Quantity {
			conflicts = append(conflicts, domainavailability.ConflictItem{
				ItemID:    string(item.ID),
				ProductID: item.ProductID,
				Range:     item.Range,
				Requested: item.Quantity,
				Available: len(picked),
			})
			continue
		}
		for _, asset := range picked {
			taken[asset.ID] = append(taken[asset.ID], holdRange)
			rentals = append(rentals, domainorder.RentalParams{
				AssetID:    asset.ID,
				ProductID:  product.ID,
				Range:      item.Range,
				DailyRate:  product.DailyRate,
				BufferDays: product.BufferDays,
			})
		}
	}
	return rentals, conflicts, nil
}

func overlapsAny(ranges []daterange.DateRange, r daterange.DateRange) bool {
	for _, existing := range ranges {
		if existing.Overlaps(r) {
			return true
		}
	}
	return false
}

func (h *Handler) Register(bus *commands.InMemoryBus) {
	commands.RegisterHandler[PlaceOrderCommand, *dto.Order](bus, placeOrderKey, h)
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var (
	_ commands.Handler[PlaceOrderCommand, *dto.Order] = (*Handler)(nil)
	_ middleware.IdempotentCommand                    = PlaceOrderCommand{}
	_ middleware.LockScoped                           = PlaceOrderCommand{}
)
