package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"stagerent/internal/domain/catalog"
	"stagerent/internal/domain/shared/daterange"
	"stagerent/internal/domain/shared/money"
)

var (
	ErrCartNotFound  = errors.New("cart: not found")
	ErrItemNotFound  = errors.New("cart: item not found")
	ErrQuantity      = errors.New("cart: quantity must be positive")
	ErrEmpty         = errors.New("cart: cart is empty")
	ErrUserRequired  = errors.New("cart: user id is required")
	ErrProductNeeded = errors.New("cart: product id is required")
)

type CartID string

type ItemID string

// Item is a wish to rent quantity units of a product for a range. It holds
// no inventory.
type Item struct {
	ID            ItemID
	ProductID     catalog.ProductID
	Quantity      int
	Range         daterange.DateRange
	PriceSnapshot money.Money
	AddedAt       time.Time
}

type Cart struct {
	ID        CartID
	UserID    string
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

type Repository interface {
	ByID(ctx context.Context, id CartID) (*Cart, error)
	ByUser(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
}

func New(id CartID, userID string, now time.Time) (*Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}
	now = now.UTC()
	return &Cart{ID: id, UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
}

type AddItemParams struct {
	ID            ItemID
	ProductID     catalog.ProductID
	Quantity      int
	Range         daterange.DateRange
	PriceSnapshot money.Money
	Now           time.Time
}

// AddItem merges into an existing line for the same product and range and
// returns the resulting line.
func (c *Cart) AddItem(params AddItemParams) (Item, error) {
	if strings.TrimSpace(string(params.ProductID)) == "" {
		return Item{}, ErrProductNeeded
	}
	if params.Quantity <= 0 {
		return Item{}, ErrQuantity
	}
	if err := params.Range.Validate(); err != nil {
		return Item{}, err
	}
	now := params.Now.UTC()
	c.UpdatedAt = now
	if idx := c.indexOf(params.ProductID, params.Range); idx >= 0 {
		c.Items[idx].Quantity += params.Quantity
		c.Items[idx].PriceSnapshot = params.PriceSnapshot
		return c.Items[idx], nil
	}
	item := Item{
		ID:            params.ID,
		ProductID:     params.ProductID,
		Quantity:      params.Quantity,
		Range:         params.Range,
		PriceSnapshot: params.PriceSnapshot,
		AddedAt:       now,
	}
	c.Items = append(c.Items, item)
	return item, nil
}

// QuantityFor returns what the cart already wants for product over r.
func (c *Cart) QuantityFor(productID catalog.ProductID, r daterange.DateRange) int {
	if idx := c.indexOf(productID, r); idx >= 0 {
		return c.Items[idx].Quantity
	}
	return 0
}

func (c *Cart) Item(id ItemID) (Item, error) {
	for _, it := range c.Items {
		if it.ID == id {
			return it, nil
		}
	}
	return Item{}, ErrItemNotFound
}

func (c *Cart) UpdateQuantity(id ItemID, quantity int, now time.Time) error {
	if quantity <= 0 {
		return ErrQuantity
	}
	for i := range c.Items {
		if c.Items[i].ID == id {
			c.Items[i].Quantity = quantity
			c.UpdatedAt = now.UTC()
			return nil
		}
	}
	return ErrItemNotFound
}

func (c *Cart) RemoveItem(id ItemID, now time.Time) error {
	for i := range c.Items {
		if c.Items[i].ID == id {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.UpdatedAt = now.UTC()
			return nil
		}
	}
	return ErrItemNotFound
}

func (c *Cart) Clear(now time.Time) {
	c.Items = nil
	c.UpdatedAt = now.UTC()
}

func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

// ProductIDs lists distinct products in the cart.
func (c *Cart) ProductIDs() []catalog.ProductID {
	seen := make(map[catalog.ProductID]struct{}, len(c.Items))
	out := make([]catalog.ProductID, 0, len(c.Items))
	for _, it := range c.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		out = append(out, it.ProductID)
	}
	return out
}

func (c *Cart) indexOf(productID catalog.ProductID, r daterange.DateRange) int {
	for i, it := range c.Items {
		if it.ProductID == productID && it.Range.Equal(r) {
			return i
		}
	}
	return -1
}
