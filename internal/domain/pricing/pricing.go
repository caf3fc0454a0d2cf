package pricing

import (
	"errors"
	"fmt"

	"stagerent/internal/domain/shared/daterange"
	"stagerent/internal/domain/shared/money"
)

var (
	ErrQuantity       = errors.New("pricing: quantity must be positive")
	ErrCurrencyUnset  = errors.New("pricing: currency must be defined")
	ErrDeliveryMethod = errors.New("pricing: unknown delivery method")
)

type DeliveryMethod string

const (
	DeliveryQuick  DeliveryMethod = "quick"
	DeliveryParcel DeliveryMethod = "parcel"
	DeliveryBundle DeliveryMethod = "bundle"
)

// ParseDeliveryMethod maps an empty value to parcel.
func ParseDeliveryMethod(value string) (DeliveryMethod, error) {
	switch DeliveryMethod(value) {
	case "":
		return DeliveryParcel, nil
	case DeliveryQuick, DeliveryParcel, DeliveryBundle:
		return DeliveryMethod(value), nil
	}
	return "", fmt.Errorf("%w: %q", ErrDeliveryMethod, value)
}

// ShippingCost is a flat fee per order.
func ShippingCost(method DeliveryMethod, currency string) money.Money {
	switch method {
	case DeliveryQuick:
		return money.Must(15000, currency)
	case DeliveryBundle:
		return money.Zero(currency)
	default:
		return money.Must(5000, currency)
	}
}

// Line prices one product over one range.
type Line struct {
	DailyRate money.Money
	Days      int
	Quantity  int
	Subtotal  money.Money
}

// Subtotal is dailyRate * durationDays * quantity.
func Subtotal(rate money.Money, r daterange.DateRange, quantity int) (Line, error) {
	if rate.Currency == "" {
		return Line{}, ErrCurrencyUnset
	}
	if quantity <= 0 {
		return Line{}, ErrQuantity
	}
	days := r.Days()
	return Line{
		DailyRate: rate,
		Days:      days,
		Quantity:  quantity,
		Subtotal:  rate.Multiply(int64(days) * int64(quantity)),
	}, nil
}

type Breakdown struct {
	Lines    []Line
	Items    money.Money
	Shipping money.Money
	Total    money.Money
}

func Quote(currency string, method DeliveryMethod, lines ...Line) (Breakdown, error) {
	subtotals := make([]money.Money, 0, len(lines))
	for _, l := range lines {
		subtotals = append(subtotals, l.Subtotal)
	}
	items, err := money.Sum(currency, subtotals...)
	if err != nil {
		return Breakdown{}, err
	}
	shipping := ShippingCost(method, currency)
	total, err := items.Add(shipping)
	if err != nil {
		return Breakdown{}, err
	}
	return Breakdown{Lines: lines, Items: items, Shipping: shipping, Total: total}, nil
}
