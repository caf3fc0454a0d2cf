package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/dto"
	"stagerent/internal/app/handlers/support"
	"stagerent/internal/app/middleware"
	"stagerent/internal/app/principal"
	"stagerent/internal/app/queries"
	"stagerent/internal/app/uow"
	domainavailability "stagerent/internal/domain/availability"
	domaincart "stagerent/internal/domain/cart"
	domaincatalog "stagerent/internal/domain/catalog"
	"stagerent/internal/domain/shared/daterange"
)

const (
	addItemKey    = "cart.add_item"
	updateItemKey = "cart.update_item"
	removeItemKey = "cart.remove_item"
	clearKey      = "cart.clear"
	getCartKey    = "cart.get"
)

type AddItemCommand struct {
	UserID    string
	ProductID string
	Range     daterange.DateRange
	Quantity  int
}

func (c AddItemCommand) Key() string { return addItemKey }

func (c AddItemCommand) Validate() error {
	if strings.TrimSpace(c.ProductID) == "" {
		return domaincart.ErrProductNeeded
	}
	if c.Quantity <= 0 {
		return domaincart.ErrQuantity
	}
	return c.Range.Validate()
}

type UpdateItemCommand struct {
	UserID   string
	ItemID   string
	Quantity int
}

func (c UpdateItemCommand) Key() string { return updateItemKey }

type RemoveItemCommand struct {
	UserID string
	ItemID string
}

func (c RemoveItemCommand) Key() string { return removeItemKey }

type ClearCommand struct {
	UserID string
}

func (c ClearCommand) Key() string { return clearKey }

type GetCartQuery struct {
	UserID string
}

func (q GetCartQuery) Key() string { return getCartKey }

// Handlers maintain one open cart per user. Adding checks availability as a
// hint only; nothing is reserved until checkout.
type Handlers struct {
	UoWFactory uow.UoWFactory
	Clock      support.Clock
	IDs        support.IDs
	Logger     *slog.Logger
}

func (h *Handlers) AddItem(ctx context.Context, cmd AddItemCommand) (dto.Cart, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return dto.Cart{}, err
	}
	userID, err := owner(ctx, cmd.UserID)
	if err != nil {
		return dto.Cart{}, err
	}
	now := h.Clock.Now()
	c, err := h.openCart(ctx, unit, userID, now)
	if err != nil {
		return dto.Cart{}, err
	}
	product, err := unit.Products().ByID(ctx, domaincatalog.ProductID(cmd.ProductID))
	if err != nil {
		return dto.Cart{}, err
	}
	wanted := c.QuantityFor(product.ID, cmd.Range) + cmd.Quantity
	if err := h.checkAvailable(ctx, unit, product, cmd.Range, wanted, now); err != nil {
		return dto.Cart{}, err
	}
	if _, err := c.AddItem(domaincart.AddItemParams{
		ID:            domaincart.ItemID(h.IDs.New()),
		ProductID:     product.ID,
		Quantity:      cmd.Quantity,
		Range:         cmd.Range,
		PriceSnapshot: product.DailyRate,
		Now:           now,
	}); err != nil {
		return dto.Cart{}, err
	}
	if err := unit.Carts().Save(ctx, c); err != nil {
		return dto.Cart{}, err
	}
	h.logger().Info("cart item added", "cart_id", c.ID, "product_id", product.ID, "quantity", wanted)
	return dto.MapCart(c), nil
}

func (h *Handlers) UpdateItem(ctx context.Context, cmd UpdateItemCommand) (dto.Cart, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return dto.Cart{}, err
	}
	userID, err := owner(ctx, cmd.UserID)
	if err != nil {
		return dto.Cart{}, err
	}
	c, err := unit.Carts().ByUser(ctx, userID)
	if err != nil {
		return dto.Cart{}, err
	}
	item, err := c.Item(domaincart.ItemID(cmd.ItemID))
	if err != nil {
		return dto.Cart{}, err
	}
	now := h.Clock.Now()
	if cmd.Quantity > item.Quantity {
		product, err := unit.Products().ByID(ctx, item.ProductID)
		if err != nil {
			return dto.Cart{}, err
		}
		if err := h.checkAvailable(ctx, unit, product, item.Range, cmd.Quantity, now); err != nil {
			return dto.Cart{}, err
		}
	}
	if err := c.UpdateQuantity(item.ID, cmd.Quantity, now); err != nil {
		return dto.Cart{}, err
	}
	if err := unit.Carts().Save(ctx, c); err != nil {
		return dto.Cart{}, err
	}
	return dto.MapCart(c), nil
}

func (h *Handlers) RemoveItem(ctx context.Context, cmd RemoveItemCommand) (dto.Cart, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return dto.Cart{}, err
	}
	userID, err := owner(ctx, cmd.UserID)
	if err != nil {
		return dto.Cart{}, err
	}
	c, err := unit.Carts().ByUser(ctx, userID)
	if err != nil {
		return dto.Cart{}, err
	}
	if err := c.RemoveItem(domaincart.ItemID(cmd.ItemID), h.Clock.Now()); err != nil {
		return dto.Cart{}, err
	}
	if err := unit.Carts().Save(ctx, c); err != nil {
		return dto.Cart{}, err
	}
	return dto.MapCart(c), nil
}

func (h *Handlers) Clear(ctx context.Context, cmd ClearCommand) (dto.Cart, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return dto.Cart{}, err
	}
	userID, err := owner(ctx, cmd.UserID)
	if err != nil {
		return dto.Cart{}, err
	}
	c, err := unit.Carts().ByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domaincart.ErrCartNotFound) {
			return dto.Cart{UserID: userID, Items: []dto.CartItem{}}, nil
		}
		return dto.Cart{}, err
	}
	c.Clear(h.Clock.Now())
	if err := unit.Carts().Save(ctx, c); err != nil {
		return dto.Cart{}, err
	}
	return dto.MapCart(c), nil
}

func (h *Handlers) Get(ctx context.Context, q GetCartQuery) (dto.Cart, error) {
	userID, err := owner(ctx, q.UserID)
	if err != nil {
		return dto.Cart{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Cart{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	c, err := unit.Carts().ByUser(execCtx, userID)
	if err != nil {
		if errors.Is(err, domaincart.ErrCartNotFound) {
			return dto.Cart{UserID: userID, Items: []dto.CartItem{}}, nil
		}
		return dto.Cart{}, err
	}
	return dto.MapCart(c), nil
}

func (h *Handlers) Register(cmds *commands.InMemoryBus, qs *queries.InMemoryBus) {
	commands.RegisterHandler(cmds, addItemKey, commands.HandlerFunc[AddItemCommand, dto.Cart](h.AddItem))
	commands.RegisterHandler(cmds, updateItemKey, commands.HandlerFunc[UpdateItemCommand, dto.Cart](h.UpdateItem))
	commands.RegisterHandler(cmds, removeItemKey, commands.HandlerFunc[RemoveItemCommand, dto.Cart](h.RemoveItem))
	commands.RegisterHandler(cmds, clearKey, commands.HandlerFunc[ClearCommand, dto.Cart](h.Clear))
	queries.RegisterHandler(qs, getCartKey, queries.HandlerFunc[GetCartQuery, dto.Cart](h.Get))
}

func (h *Handlers) openCart(ctx context.Context, unit uow.UnitOfWork, userID string, now time.Time) (*domaincart.Cart, error) {
	c, err := unit.Carts().ByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domaincart.ErrCartNotFound) {
		return nil, err
	}
	return domaincart.New(domaincart.CartID(h.IDs.New()), userID, now)
}

func (h *Handlers) checkAvailable(ctx context.Context, unit uow.UnitOfWork, product *domaincatalog.Product, r daterange.DateRange, wanted int, now time.Time) error {
	checker := domainavailability.NewChecker(unit.Availability(), unit.Assets())
	checker.Now = func() time.Time { return now }
	count, err := checker.AvailableCount(ctx, product.ID, r.Extend(product.BufferDays))
	if err != nil {
		return err
	}
	if wanted > count {
		return &domainavailability.ConflictError{Items: []domainavailability.ConflictItem{{
			ProductID: product.ID,
			Range:     r,
			Requested: wanted,
			Available: count,
		}}}
	}
	return nil
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// owner resolves whose cart is addressed. Customers may only touch their own.
func owner(ctx context.Context, requested string) (string, error) {
	p, ok := principal.FromContext(ctx)
	requested = strings.TrimSpace(requested)
	if !ok {
		if requested == "" {
			return "", domaincart.ErrUserRequired
		}
		return requested, nil
	}
	if requested == "" || requested == p.ID {
		return p.ID, nil
	}
	if p.HasRole(principal.RoleAdmin) {
		return requested, nil
	}
	return "", fmt.Errorf("%w: cart of %s", middleware.ErrForbidden, requested)
}
