package dto

import (
	"time"

	"stagerent/internal/domain/cart"
)

type CartItem struct {
	ID            string   `json:"id"`
	ProductID     string   `json:"product_id"`
	Quantity      int      `json:"quantity"`
	Range         RangeDTO `json:"range"`
	PriceSnapshot MoneyDTO `json:"price_snapshot"`
}

type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func MapCart(c *cart.Cart) Cart {
	items := make([]CartItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, CartItem{
			ID:            string(it.ID),
			ProductID:     string(it.ProductID),
			Quantity:      it.Quantity,
			Range:         MapRange(it.Range),
			PriceSnapshot: MapMoney(it.PriceSnapshot),
		})
	}
	return Cart{ID: string(c.ID), UserID: c.UserID, Items: items, UpdatedAt: c.UpdatedAt}
}
