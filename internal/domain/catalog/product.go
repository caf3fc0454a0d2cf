package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"stagerent/internal/domain/shared/events"
	"stagerent/internal/domain/shared/money"
)

var (
	ErrTitleRequired    = errors.New("catalog: title is required")
	ErrDailyRate        = errors.New("catalog: daily rate must be non-negative")
	ErrBufferDays       = errors.New("catalog: buffer days must be non-negative")
	ErrProductNotFound  = errors.New("catalog: product not found")
	ErrProductIDMissing = errors.New("catalog: product id is required")
)

// DefaultBufferDays keeps an asset blocked for one extra day after a rental
// ends so it can be cleaned and shipped back.
const DefaultBufferDays = 1

type ProductID string

type Product struct {
	ID         ProductID
	Title      string
	Category   string
	DailyRate  money.Money
	BufferDays int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	events.EventRecorder
}

type ProductRepository interface {
	ByID(ctx context.Context, id ProductID) (*Product, error)
	Save(ctx context.Context, product *Product) error
	List(ctx context.Context) ([]*Product, error)
}

type CreateProductParams struct {
	ID         ProductID
	Title      string
	Category   string
	DailyRate  money.Money
	BufferDays *int
	Now        time.Time
}

func NewProduct(params CreateProductParams) (*Product, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrProductIDMissing
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if params.DailyRate.IsNegative() {
		return nil, ErrDailyRate
	}
	rate := params.DailyRate
	if rate.Currency == "" {
		rate.Currency = money.DefaultCurrency
	}
	buffer := DefaultBufferDays
	if params.BufferDays != nil {
		buffer = *params.BufferDays
	}
	if buffer < 0 {
		return nil, ErrBufferDays
	}
	now := params.Now.UTC()
	p := &Product{
		ID:         params.ID,
		Title:      title,
		Category:   strings.TrimSpace(params.Category),
		DailyRate:  rate,
		BufferDays: buffer,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	p.Record(ProductRegistered{ProductID: p.ID, Title: p.Title, DailyRate: p.DailyRate, At: now})
	return p, nil
}

type ProductRegistered struct {
	ProductID ProductID
	Title     string
	DailyRate money.Money
	At        time.Time
}

func (e ProductRegistered) EventName() string     { return "catalog.product_registered" }
func (e ProductRegistered) AggregateID() string   { return string(e.ProductID) }
func (e ProductRegistered) OccurredAt() time.Time { return e.At }
