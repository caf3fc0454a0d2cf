package availability

import (
	"time"

	"stagerent/internal/domain/shared/daterange"
)

type PeriodBlocked struct {
	PeriodID  PeriodID
	AssetID   string
	ProductID string
	Range     daterange.DateRange
	Reason    Reason
	OrderID   string
	At        time.Time
}

func (e PeriodBlocked) EventName() string     { return "availability.blocked" }
func (e PeriodBlocked) AggregateID() string   { return subjectOf(e.AssetID, e.ProductID) }
func (e PeriodBlocked) OccurredAt() time.Time { return e.At }

type PeriodReleased struct {
	PeriodID  PeriodID
	AssetID   string
	ProductID string
	Range     daterange.DateRange
	Reason    Reason
	OrderID   string
	At        time.Time
}

func (e PeriodReleased) EventName() string     { return "availability.released" }
func (e PeriodReleased) AggregateID() string   { return subjectOf(e.AssetID, e.ProductID) }
func (e PeriodReleased) OccurredAt() time.Time { return e.At }

func BlockedEvent(p BlockedPeriod, at time.Time) PeriodBlocked {
	return PeriodBlocked{PeriodID: p.ID, AssetID: string(p.AssetID), ProductID: string(p.ProductID), Range: p.Range, Reason: p.Reason, OrderID: p.OrderID, At: at.UTC()}
}

func ReleasedEvent(p BlockedPeriod, at time.Time) PeriodReleased {
	return PeriodReleased{PeriodID: p.ID, AssetID: string(p.AssetID), ProductID: string(p.ProductID), Range: p.Range, Reason: p.Reason, OrderID: p.OrderID, At: at.UTC()}
}

func subjectOf(assetID, productID string) string {
	if assetID != "" {
		return assetID
	}
	return productID
}
