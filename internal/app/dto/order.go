package dto

import (
	"time"

	"stagerent/internal/domain/order"
)

// Order is the one view of an order served to customers and the admin
// console alike.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Status          string          `json:"status"`
	AllowedActions  []string        `json:"allowed_actions"`
	Rentals         []Rental        `json:"rentals"`
	DeliveryMethod  string          `json:"delivery_method"`
	ShippingAddress string          `json:"shipping_address,omitempty"`
	ItemsAmount     MoneyDTO        `json:"items_amount"`
	ShippingCost    MoneyDTO        `json:"shipping_cost"`
	Total           MoneyDTO        `json:"total"`
	DepositDeadline *time.Time      `json:"deposit_deadline,omitempty"`
	Cancellation    *Cancellation   `json:"cancellation,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	History         []StatusHistory `json:"history"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Rental struct {
	ID        string   `json:"id"`
	AssetID   string   `json:"asset_id"`
	ProductID string   `json:"product_id"`
	Range     RangeDTO `json:"range"`
	HoldRange RangeDTO `json:"hold_range"`
	DailyRate MoneyDTO `json:"daily_rate"`
	Subtotal  MoneyDTO `json:"subtotal"`
}

type Cancellation struct {
	Reason      string    `json:"reason"`
	Actor       string    `json:"actor"`
	RefundRate  int       `json:"refund_rate"`
	Refund      MoneyDTO  `json:"refund"`
	Fee         MoneyDTO  `json:"fee"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type StatusHistory struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	Reason string    `json:"reason,omitempty"`
	Actor  string    `json:"actor,omitempty"`
	At     time.Time `json:"at"`
}

type OrderCollection struct {
	Items []Order `json:"items"`
}

// TransitionResult reports the outcome of an admin action. Changed is false
// when the order was already in the target status.
type TransitionResult struct {
	Order   Order  `json:"order"`
	Changed bool   `json:"changed"`
	Effect  string `json:"effect"`
}

func MapOrder(o *order.Order) Order {
	out := Order{
		ID:              string(o.ID),
		UserID:          o.UserID,
		Status:          string(o.Status),
		DeliveryMethod:  string(o.DeliveryMethod),
		ShippingAddress: o.ShippingAddress,
		ItemsAmount:     MapMoney(o.ItemsAmount),
		ShippingCost:    MapMoney(o.ShippingCost),
		Total:           MapMoney(o.TotalAmount),
		RejectionReason: o.RejectionReason,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, a := range order.AllowedActions(o.Status) {
		out.AllowedActions = append(out.AllowedActions, string(a))
	}
	if o.Status.AwaitingPayment() {
		out.DepositDeadline = optionalTime(o.DepositDeadline)
	}
	for _, r := range o.Rentals {
		out.Rentals = append(out.Rentals, Rental{
			ID:        r.ID,
			AssetID:   string(r.AssetID),
			ProductID: string(r.ProductID),
			Range:     MapRange(r.Range),
			HoldRange: MapRange(r.HoldRange),
			DailyRate: MapMoney(r.DailyRate),
			Subtotal:  MapMoney(r.Subtotal),
		})
	}
	if c := o.Cancellation; c != nil {
		out.Cancellation = &Cancellation{
			Reason:      c.Reason,
			Actor:       c.Actor,
			RefundRate:  c.RefundRate,
			Refund:      MapMoney(c.RefundAmount),
			Fee:         MapMoney(c.Fee),
			CancelledAt: c.CancelledAt,
		}
	}
	out.History = make([]StatusHistory, 0, len(o.History))
	for _, h := range o.History {
		out.History = append(out.History, StatusHistory{From: string(h.From), To: string(h.To), Reason: h.Reason, Actor: h.Actor, At: h.At})
	}
	return out
}

func MapOrders(orders []*order.Order) OrderCollection {
	items := make([]Order, 0, len(orders))
	for _, o := range orders {
		items = append(items, MapOrder(o))
	}
	return OrderCollection{Items: items}
}
