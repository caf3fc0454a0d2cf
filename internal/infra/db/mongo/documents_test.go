package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"stagerent/internal/domain/availability"
	"stagerent/internal/domain/issue"
	"stagerent/internal/domain/order"
	"stagerent/internal/domain/pricing"
	"stagerent/internal/domain/shared/daterange"
	"stagerent/internal/domain/shared/money"
)

func TestOrderDocumentRoundTripKeepsCancellation(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	r := daterange.Must(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC))
	o := &order.Order{
		ID:             "o-1",
		UserID:         "u-1",
		Status:         order.StatusCancelled,
		DeliveryMethod: pricing.DeliveryQuick,
		Rentals: []order.Rental{{
			ID: "r-1", OrderID: "o-1", AssetID: "a-1", ProductID: "dress",
			Range: r, HoldRange: r.Extend(1),
			DailyRate: money.Must(10000, "KRW"), Subtotal: money.Must(30000, "KRW"),
		}},
		TotalAmount: money.Must(45000, "KRW"),
		Cancellation: &order.Cancellation{
			Reason: "changed plans", Actor: "u-1", RefundRate: 100,
			RefundAmount: money.Must(45000, "KRW"), Fee: money.Zero("KRW"), CancelledAt: at,
		},
		History:   []order.StatusChange{{From: order.StatusRequested, To: order.StatusCancelled, At: at}},
		CreatedAt: at,
		UpdatedAt: at,
		Version:   2,
	}

	raw, err := bson.Marshal(newOrderDocument(o))
	require.NoError(t, err)
	var doc orderDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	back := doc.toAggregate()

	require.Equal(t, o.Rentals, back.Rentals)
	require.Equal(t, o.Cancellation, back.Cancellation)
	require.Equal(t, o.History, back.History)
	require.Equal(t, int64(2), back.Version)
}

func TestPeriodDocumentFlattensRange(t *testing.T) {
	r := daterange.Must(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC))
	p := availability.BlockedPeriod{ID: "p-1", AssetID: "a-1", ProductID: "dress", Range: r, Reason: availability.ReasonOrder, OrderID: "o-1"}

	doc := newPeriodDocument(p)
	require.Equal(t, r.Start, doc.Start)
	require.Equal(t, r.End, doc.End)
	require.Equal(t, p, doc.toPeriod())
}

func TestIssueDocumentOmitsEmptyImpactRange(t *testing.T) {
	at := time.Date(2025, 3, 13, 9, 0, 0, 0, time.UTC)
	is := &issue.RentalIssue{ID: "is-1", RentalID: "r-1", AssetID: "a-1", Type: issue.TypeDelay, Status: issue.StatusDetected, ReportedAt: at, UpdatedAt: at}
	raw, err := bson.Marshal(newIssueDocument(is))
	require.NoError(t, err)
	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	require.NotContains(t, m, "impact_range")

	is.ImpactNextBooking = true
	is.ImpactRange = daterange.Must(time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))
	is.BlockID = "pb-1"
	raw, err = bson.Marshal(newIssueDocument(is))
	require.NoError(t, err)
	var doc issueDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	back := doc.toAggregate()
	require.True(t, back.ImpactRange.Equal(is.ImpactRange))
	require.Equal(t, availability.PeriodID("pb-1"), back.BlockID)
}
