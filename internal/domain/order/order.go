package order

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"stagerent/internal/domain/catalog"
	"stagerent/internal/domain/pricing"
	"stagerent/internal/domain/shared/daterange"
	"stagerent/internal/domain/shared/events"
	"stagerent/internal/domain/shared/money"
)

// DepositWindow is how long a customer has to pay before the order expires.
const DepositWindow = 24 * time.Hour

type OrderID string

// Rental commits one asset to one order. Rentals are never deleted; a
// cancelled order keeps them for history.
type Rental struct {
	ID        string
	OrderID   OrderID
	AssetID   catalog.AssetID
	ProductID catalog.ProductID
	Range     daterange.DateRange
	// HoldRange is Range extended by the product's buffer days.
	HoldRange daterange.DateRange
	DailyRate money.Money
	Subtotal  money.Money
}

type StatusChange struct {
	From   Status
	To     Status
	Reason string
	Actor  string
	At     time.Time
}

type Order struct {
	ID              OrderID
	UserID          string
	CartID          string
	Rentals         []Rental
	Status          Status
	DeliveryMethod  pricing.DeliveryMethod
	ShippingAddress string
	DeliveryNotes   string
	ItemsAmount     money.Money
	ShippingCost    money.Money
	TotalAmount     money.Money
	DepositDeadline time.Time
	Cancellation    *Cancellation
	RejectionReason string
	History         []StatusChange
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id OrderID) (*Order, error)
	Save(ctx context.Context, order *Order) error
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
	// ListByStatus returns every order when status is empty.
	ListByStatus(ctx context.Context, status Status) ([]*Order, error)
	// ListAwaitingPayment returns orders still waiting for a deposit whose
	// deadline is before cutoff.
	ListAwaitingPayment(ctx context.Context, cutoff time.Time) ([]*Order, error)
}

type RentalParams struct {
	AssetID    catalog.AssetID
	ProductID  catalog.ProductID
	Range      daterange.DateRange
	DailyRate  money.Money
	BufferDays int
}

type CreateParams struct {
	ID              OrderID
	UserID          string
	CartID          string
	Rentals         []RentalParams
	DeliveryMethod  pricing.DeliveryMethod
	ShippingAddress string
	DeliveryNotes   string
	Currency        string
	Now             time.Time
	NewRentalID     func() string
}

// New creates an order in the requested state and prices its rentals.
func New(params CreateParams) (*Order, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("order: id is required")
	}
	if strings.TrimSpace(params.UserID) == "" {
		return nil, ErrUserRequired
	}
	if len(params.Rentals) == 0 {
		return nil, ErrNoRentals
	}
	currency := params.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	method := params.DeliveryMethod
	if method == "" {
		method = pricing.DeliveryParcel
	}
	now := params.Now.UTC()

	rentals := make([]Rental, 0, len(params.Rentals))
	lines := make([]pricing.Line, 0, len(params.Rentals))
	for i, rp := range params.Rentals {
		if err := rp.Range.Validate(); err != nil {
			return nil, err
		}
		line, err := pricing.Subtotal(rp.DailyRate, rp.Range, 1)
		if err != nil {
			return nil, err
		}
		id := ""
		if params.NewRentalID != nil {
			id = params.NewRentalID()
		}
		if id == "" {
			id = string(params.ID) + "-r" + strconv.Itoa(i+1)
		}
		rentals = append(rentals, Rental{
			ID:        id,
			OrderID:   params.ID,
			AssetID:   rp.AssetID,
			ProductID: rp.ProductID,
			Range:     rp.Range,
			HoldRange: rp.Range.Extend(rp.BufferDays),
			DailyRate: rp.DailyRate,
			Subtotal:  line.Subtotal,
		})
		lines = append(lines, line)
	}
	quote, err := pricing.Quote(currency, method, lines...)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:              params.ID,
		UserID:          params.UserID,
		CartID:          params.CartID,
		Rentals:         rentals,
		Status:          StatusRequested,
		DeliveryMethod:  method,
		ShippingAddress: strings.TrimSpace(params.ShippingAddress),
		DeliveryNotes:   strings.TrimSpace(params.DeliveryNotes),
		ItemsAmount:     quote.Items,
		ShippingCost:    quote.Shipping,
		TotalAmount:     quote.Total,
		DepositDeadline: now.Add(DepositWindow),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.Record(Placed{OrderID: o.ID, UserID: o.UserID, Rentals: len(rentals), Total: o.TotalAmount, At: now})
	return o, nil
}

// Span returns the smallest range covering every rental.
func (o *Order) Span() daterange.DateRange {
	var span daterange.DateRange
	for i, r := range o.Rentals {
		if i == 0 || r.Range.Start.Before(span.Start) {
			span.Start = r.Range.Start
		}
		if i == 0 || r.Range.End.After(span.End) {
			span.End = r.Range.End
		}
	}
	return span
}

// ProductIDs lists distinct products in rental order.
func (o *Order) ProductIDs() []catalog.ProductID {
	seen := make(map[catalog.ProductID]struct{}, len(o.Rentals))
	out := make([]catalog.ProductID, 0, len(o.Rentals))
	for _, r := range o.Rentals {
		if _, ok := seen[r.ProductID]; ok {
			continue
		}
		seen[r.ProductID] = struct{}{}
		out = append(out, r.ProductID)
	}
	return out
}

// PaymentOverdue reports whether the deposit deadline passed while unpaid.
func (o *Order) PaymentOverdue(now time.Time) bool {
	return o.Status.AwaitingPayment() && !o.DepositDeadline.IsZero() && now.After(o.DepositDeadline)
}
