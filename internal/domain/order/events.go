package order

import (
	"time"

	"stagerent/internal/domain/shared/money"
)

// StatusChanged fires once per successful transition and drives customer
// notifications.
type StatusChanged struct {
	OrderID OrderID
	UserID  string
	From    Status
	To      Status
	Reason  string
	Actor   string
	At      time.Time
}

func (e StatusChanged) EventName() string     { return "order.status_changed" }
func (e StatusChanged) AggregateID() string   { return string(e.OrderID) }
func (e StatusChanged) OccurredAt() time.Time { return e.At }

type Placed struct {
	OrderID OrderID
	UserID  string
	Rentals int
	Total   money.Money
	At      time.Time
}

func (e Placed) EventName() string     { return "order.placed" }
func (e Placed) AggregateID() string   { return string(e.OrderID) }
func (e Placed) OccurredAt() time.Time { return e.At }
