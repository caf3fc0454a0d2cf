package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"stagerent/internal/app/dto"
	"stagerent/internal/app/handlers/support"
	"stagerent/internal/app/middleware"
	"stagerent/internal/app/principal"
	"stagerent/internal/app/queries"
	"stagerent/internal/app/uow"
	domainorder "stagerent/internal/domain/order"
)

const (
	getOrderKey     = "orders.get"
	listOrdersKey   = "orders.list"
	listMyOrdersKey = "orders.list_mine"
)

var ErrUnknownStatus = errors.New("orders: unknown status")

type GetOrderQuery struct {
	OrderID string
}

func (q GetOrderQuery) Key() string { return getOrderKey }

// ListOrdersQuery is the admin listing; an empty Status lists everything.
type ListOrdersQuery struct {
	Status string
}

func (q ListOrdersQuery) Key() string { return listOrdersKey }

type ListMyOrdersQuery struct{}

func (q ListMyOrdersQuery) Key() string { return listMyOrdersKey }

type QueryHandlers struct {
	UoWFactory uow.UoWFactory
}

func (h *QueryHandlers) Get(ctx context.Context, q GetOrderQuery) (dto.Order, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Order{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	o, err := unit.Orders().ByID(execCtx, domainorder.OrderID(q.OrderID))
	if err != nil {
		return dto.Order{}, err
	}
	caller, _ := principal.FromContext(ctx)
	if o.UserID != caller.ID && !caller.HasRole(principal.RoleAdmin) {
		// Hide existence from other customers.
		return dto.Order{}, domainorder.ErrOrderNotFound
	}
	return dto.MapOrder(o), nil
}

func (h *QueryHandlers) List(ctx context.Context, q ListOrdersQuery) (dto.OrderCollection, error) {
	caller, _ := principal.FromContext(ctx)
	if !caller.HasRole(principal.RoleAdmin) {
		return dto.OrderCollection{}, middleware.ErrForbidden
	}
	var status domainorder.Status
	if raw := strings.TrimSpace(q.Status); raw != "" {
		parsed, ok := domainorder.ParseStatus(raw)
		if !ok {
			return dto.OrderCollection{}, fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
		}
		status = parsed
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.OrderCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	orders, err := unit.Orders().ListByStatus(execCtx, status)
	if err != nil {
		return dto.OrderCollection{}, err
	}
	sortNewestFirst(orders)
	return dto.MapOrders(orders), nil
}

func (h *QueryHandlers) ListMine(ctx context.Context, _ ListMyOrdersQuery) (dto.OrderCollection, error) {
	caller, ok := principal.FromContext(ctx)
	if !ok || caller.ID == "" {
		return dto.OrderCollection{}, middleware.ErrUnauthenticated
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.OrderCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	orders, err := unit.Orders().ListByUser(execCtx, caller.ID)
	if err != nil {
		return dto.OrderCollection{}, err
	}
	sortNewestFirst(orders)
	return dto.MapOrders(orders), nil
}

func (h *QueryHandlers) Register(bus *queries.InMemoryBus) {
	queries.RegisterHandler(bus, getOrderKey, queries.HandlerFunc[GetOrderQuery, dto.Order](h.Get))
	queries.RegisterHandler(bus, listOrdersKey, queries.HandlerFunc[ListOrdersQuery, dto.OrderCollection](h.List))
	queries.RegisterHandler(bus, listMyOrdersKey, queries.HandlerFunc[ListMyOrdersQuery, dto.OrderCollection](h.ListMine))
}

func sortNewestFirst(orders []*domainorder.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
