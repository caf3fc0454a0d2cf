package mongo

import (
	"time"

	"stagerent/internal/domain/availability"
	"stagerent/internal/domain/cart"
	"stagerent/internal/domain/catalog"
	"stagerent/internal/domain/issue"
	"stagerent/internal/domain/order"
	"stagerent/internal/domain/pricing"
	"stagerent/internal/domain/shared/daterange"
	"stagerent/internal/domain/shared/money"
)

type rangeDocument struct {
	Start time.Time `bson:"start"`
	End   time.Time `bson:"end"`
}

func newRangeDocument(r daterange.DateRange) rangeDocument {
	return rangeDocument{Start: r.Start, End: r.End}
}

func (d rangeDocument) toRange() daterange.DateRange {
	return daterange.DateRange{Start: d.Start.UTC(), End: d.End.UTC()}
}

type productDocument struct {
	ID         string      `bson:"_id"`
	Title      string      `bson:"title"`
	Category   string      `bson:"category"`
	DailyRate  money.Money `bson:"daily_rate"`
	BufferDays int         `bson:"buffer_days"`
	CreatedAt  time.Time   `bson:"created_at"`
	UpdatedAt  time.Time   `bson:"updated_at"`
}

func newProductDocument(p *catalog.Product) productDocument {
	return productDocument{
		ID:         string(p.ID),
		Title:      p.Title,
		Category:   p.Category,
		DailyRate:  p.DailyRate,
		BufferDays: p.BufferDays,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (d productDocument) toAggregate() *catalog.Product {
	return &catalog.Product{
		ID:         catalog.ProductID(d.ID),
		Title:      d.Title,
		Category:   d.Category,
		DailyRate:  d.DailyRate,
		BufferDays: d.BufferDays,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
}

type assetDocument struct {
	ID        string    `bson:"_id"`
	ProductID string    `bson:"product_id"`
	Code      string    `bson:"code"`
	Status    string    `bson:"status"`
	Condition string    `bson:"condition"`
	Notes     string    `bson:"notes"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func newAssetDocument(a *catalog.Asset) assetDocument {
	return assetDocument{
		ID:        string(a.ID),
		ProductID: string(a.ProductID),
		Code:      a.Code,
		Status:    string(a.Status),
		Condition: string(a.Condition),
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (d assetDocument) toAggregate() *catalog.Asset {
	return &catalog.Asset{
		ID:        catalog.AssetID(d.ID),
		ProductID: catalog.ProductID(d.ProductID),
		Code:      d.Code,
		Status:    catalog.AssetStatus(d.Status),
		Condition: catalog.ConditionGrade(d.Condition),
		Notes:     d.Notes,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// periodDocument flattens the range so overlap queries can use an index.
type periodDocument struct {
	ID        string    `bson:"_id"`
	AssetID   string    `bson:"asset_id"`
	ProductID string    `bson:"product_id"`
	Start     time.Time `bson:"start"`
	End       time.Time `bson:"end"`
	Reason    string    `bson:"reason"`
	OrderID   string    `bson:"order_id,omitempty"`
	Notes     string    `bson:"notes"`
	CreatedBy string    `bson:"created_by"`
	CreatedAt time.Time `bson:"created_at"`
}

func newPeriodDocument(p availability.BlockedPeriod) periodDocument {
	return periodDocument{
		ID:        string(p.ID),
		AssetID:   string(p.AssetID),
		ProductID: string(p.ProductID),
		Start:     p.Range.Start,
		End:       p.Range.End,
		Reason:    string(p.Reason),
		OrderID:   p.OrderID,
		Notes:     p.Notes,
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
	}
}

func (d periodDocument) toPeriod() availability.BlockedPeriod {
	return availability.BlockedPeriod{
		ID:        availability.PeriodID(d.ID),
		AssetID:   catalog.AssetID(d.AssetID),
		ProductID: catalog.ProductID(d.ProductID),
		Range:     daterange.DateRange{Start: d.Start.UTC(), End: d.End.UTC()},
		Reason:    availability.Reason(d.Reason),
		OrderID:   d.OrderID,
		Notes:     d.Notes,
		CreatedBy: d.CreatedBy,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

type rentalDocument struct {
	ID        string        `bson:"id"`
	AssetID   string        `bson:"asset_id"`
	ProductID string        `bson:"product_id"`
	Range     rangeDocument `bson:"range"`
	HoldRange rangeDocument `bson:"hold_range"`
	DailyRate money.Money   `bson:"daily_rate"`
	Subtotal  money.Money   `bson:"subtotal"`
}

type statusChangeDocument struct {
	From   string    `bson:"from"`
	To     string    `bson:"to"`
	Reason string    `bson:"reason,omitempty"`
	Actor  string    `bson:"actor,omitempty"`
	At     time.Time `bson:"at"`
}

type cancellationDocument struct {
	Reason       string      `bson:"reason"`
	Actor        string      `bson:"actor"`
	RefundAmount money.Money `bson:"refund_amount"`
	RefundRate   int         `bson:"refund_rate"`
	Fee          money.Money `bson:"fee"`
	CancelledAt  time.Time   `bson:"cancelled_at"`
}

type orderDocument struct {
	ID              string                 `bson:"_id"`
	UserID          string                 `bson:"user_id"`
	CartID          string                 `bson:"cart_id"`
	Rentals         []rentalDocument       `bson:"rentals"`
	Status          string                 `bson:"status"`
	DeliveryMethod  string                 `bson:"delivery_method"`
	ShippingAddress string                 `bson:"shipping_address"`
	DeliveryNotes   string                 `bson:"delivery_notes"`
	ItemsAmount     money.Money            `bson:"items_amount"`
	ShippingCost    money.Money            `bson:"shipping_cost"`
	TotalAmount     money.Money            `bson:"total_amount"`
	DepositDeadline time.Time              `bson:"deposit_deadline"`
	Cancellation    *cancellationDocument  `bson:"cancellation,omitempty"`
	RejectionReason string                 `bson:"rejection_reason,omitempty"`
	History         []statusChangeDocument `bson:"history"`
	CreatedAt       time.Time              `bson:"created_at"`
	UpdatedAt       time.Time              `bson:"updated_at"`
	Version         int64                  `bson:"version"`
}

func newOrderDocument(o *order.Order) orderDocument {
	doc := orderDocument{
		ID:              string(o.ID),
		UserID:          o.UserID,
		CartID:          o.CartID,
		Rentals:         make([]rentalDocument, 0, len(o.Rentals)),
		Status:          string(o.Status),
		DeliveryMethod:  string(o.DeliveryMethod),
		ShippingAddress: o.ShippingAddress,
		DeliveryNotes:   o.DeliveryNotes,
		ItemsAmount:     o.ItemsAmount,
		ShippingCost:    o.ShippingCost,
		TotalAmount:     o.TotalAmount,
		DepositDeadline: o.DepositDeadline,
		RejectionReason: o.RejectionReason,
		History:         make([]statusChangeDocument, 0, len(o.History)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Version:         o.Version,
	}
	for _, r := range o.Rentals {
		doc.Rentals = append(doc.Rentals, rentalDocument{
			ID:        r.ID,
			AssetID:   string(r.AssetID),
			ProductID: string(r.ProductID),
			Range:     newRangeDocument(r.Range),
			HoldRange: newRangeDocument(r.HoldRange),
			DailyRate: r.DailyRate,
			Subtotal:  r.Subtotal,
		})
	}
	for _, h := range o.History {
		doc.History = append(doc.History, statusChangeDocument{
			From: string(h.From), To: string(h.To), Reason: h.Reason, Actor: h.Actor, At: h.At,
		})
	}
	if c := o.Cancellation; c != nil {
		doc.Cancellation = &cancellationDocument{
			Reason:       c.Reason,
			Actor:        c.Actor,
			RefundAmount: c.RefundAmount,
			RefundRate:   c.RefundRate,
			Fee:          c.Fee,
			CancelledAt:  c.CancelledAt,
		}
	}
	return doc
}

func (d orderDocument) toAggregate() *order.Order {
	o := &order.Order{
		ID:              order.OrderID(d.ID),
		UserID:          d.UserID,
		CartID:          d.CartID,
		Rentals:         make([]order.Rental, 0, len(d.Rentals)),
		Status:          order.Status(d.Status),
		DeliveryMethod:  pricing.DeliveryMethod(d.DeliveryMethod),
		ShippingAddress: d.ShippingAddress,
		DeliveryNotes:   d.DeliveryNotes,
		ItemsAmount:     d.ItemsAmount,
		ShippingCost:    d.ShippingCost,
		TotalAmount:     d.TotalAmount,
		DepositDeadline: d.DepositDeadline.UTC(),
		RejectionReason: d.RejectionReason,
		History:         make([]order.StatusChange, 0, len(d.History)),
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
		Version:         d.Version,
	}
	for _, r := range d.Rentals {
		o.Rentals = append(o.Rentals, order.Rental{
			ID:        r.ID,
			OrderID:   o.ID,
			AssetID:   catalog.AssetID(r.AssetID),
			ProductID: catalog.ProductID(r.ProductID),
			Range:     r.Range.toRange(),
			HoldRange: r.HoldRange.toRange(),
			DailyRate: r.DailyRate,
			Subtotal:  r.Subtotal,
		})
	}
	for _, h := range d.History {
		o.History = append(o.History, order.StatusChange{
			From: order.Status(h.From), To: order.Status(h.To), Reason: h.Reason, Actor: h.Actor, At: h.At.UTC(),
		})
	}
	if c := d.Cancellation; c != nil {
		o.Cancellation = &order.Cancellation{
			Reason:       c.Reason,
			Actor:        c.Actor,
			RefundAmount: c.RefundAmount,
			RefundRate:   c.RefundRate,
			Fee:          c.Fee,
			CancelledAt:  c.CancelledAt.UTC(),
		}
	}
	return o
}

type cartItemDocument struct {
	ID            string        `bson:"id"`
	ProductID     string        `bson:"product_id"`
	Quantity      int           `bson:"quantity"`
	Range         rangeDocument `bson:"range"`
	PriceSnapshot money.Money   `bson:"price_snapshot"`
	AddedAt       time.Time     `bson:"added_at"`
}

type cartDocument struct {
	ID        string             `bson:"_id"`
	UserID    string             `bson:"user_id"`
	Items     []cartItemDocument `bson:"items"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
	Version   int64              `bson:"version"`
}

func newCartDocument(c *cart.Cart) cartDocument {
	doc := cartDocument{
		ID:        string(c.ID),
		UserID:    c.UserID,
		Items:     make([]cartItemDocument, 0, len(c.Items)),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Version:   c.Version,
	}
	for _, it := range c.Items {
		doc.Items = append(doc.Items, cartItemDocument{
			ID:            string(it.ID),
			ProductID:     string(it.ProductID),
			Quantity:      it.Quantity,
			Range:         newRangeDocument(it.Range),
			PriceSnapshot: it.PriceSnapshot,
			AddedAt:       it.AddedAt,
		})
	}
	return doc
}

func (d cartDocument) toAggregate() *cart.Cart {
	c := &cart.Cart{
		ID:        cart.CartID(d.ID),
		UserID:    d.UserID,
		Items:     make([]cart.Item, 0, len(d.Items)),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
		Version:   d.Version,
	}
	for _, it := range d.Items {
		c.Items = append(c.Items, cart.Item{
			ID:            cart.ItemID(it.ID),
			ProductID:     catalog.ProductID(it.ProductID),
			Quantity:      it.Quantity,
			Range:         it.Range.toRange(),
			PriceSnapshot: it.PriceSnapshot,
			AddedAt:       it.AddedAt.UTC(),
		})
	}
	return c
}

type issueDocument struct {
	ID                string         `bson:"_id"`
	OrderID           string         `bson:"order_id"`
	RentalID          string         `bson:"rental_id"`
	AssetID           string         `bson:"asset_id"`
	ProductID         string         `bson:"product_id"`
	Type              string         `bson:"type"`
	Severity          string         `bson:"severity,omitempty"`
	Status            string         `bson:"status"`
	ImpactNextBooking bool           `bson:"impact_next_booking"`
	ImpactNotes       string         `bson:"impact_notes,omitempty"`
	ImpactCost        money.Money    `bson:"impact_cost"`
	ImpactRange       *rangeDocument `bson:"impact_range,omitempty"`
	BlockID           string         `bson:"block_id,omitempty"`
	AdditionalCharge  money.Money    `bson:"additional_charge"`
	ResolutionNotes   string         `bson:"resolution_notes,omitempty"`
	ReportedBy        string         `bson:"reported_by"`
	ReportedAt        time.Time      `bson:"reported_at"`
	UpdatedAt         time.Time      `bson:"updated_at"`
	Version           int64          `bson:"version"`
}

func newIssueDocument(is *issue.RentalIssue) issueDocument {
	doc := issueDocument{
		ID:                string(is.ID),
		OrderID:           is.OrderID,
		RentalID:          is.RentalID,
		AssetID:           string(is.AssetID),
		ProductID:         string(is.ProductID),
		Type:              string(is.Type),
		Severity:          string(is.Severity),
		Status:            string(is.Status),
		ImpactNextBooking: is.ImpactNextBooking,
		ImpactNotes:       is.ImpactNotes,
		ImpactCost:        is.ImpactCost,
		BlockID:           string(is.BlockID),
		AdditionalCharge:  is.AdditionalCharge,
		ResolutionNotes:   is.ResolutionNotes,
		ReportedBy:        is.ReportedBy,
		ReportedAt:        is.ReportedAt,
		UpdatedAt:         is.UpdatedAt,
		Version:           is.Version,
	}
	if !is.ImpactRange.Start.IsZero() {
		r := newRangeDocument(is.ImpactRange)
		doc.ImpactRange = &r
	}
	return doc
}

func (d issueDocument) toAggregate() *issue.RentalIssue {
	is := &issue.RentalIssue{
		ID:                issue.IssueID(d.ID),
		OrderID:           d.OrderID,
		RentalID:          d.RentalID,
		AssetID:           catalog.AssetID(d.AssetID),
		ProductID:         catalog.ProductID(d.ProductID),
		Type:              issue.Type(d.Type),
		Severity:          issue.Severity(d.Severity),
		Status:            issue.Status(d.Status),
		ImpactNextBooking: d.ImpactNextBooking,
		ImpactNotes:       d.ImpactNotes,
		ImpactCost:        d.ImpactCost,
		BlockID:           availability.PeriodID(d.BlockID),
		AdditionalCharge:  d.AdditionalCharge,
		ResolutionNotes:   d.ResolutionNotes,
		ReportedBy:        d.ReportedBy,
		ReportedAt:        d.ReportedAt.UTC(),
		UpdatedAt:         d.UpdatedAt.UTC(),
		Version:           d.Version,
	}
	if d.ImpactRange != nil {
		is.ImpactRange = d.ImpactRange.toRange()
	}
	return is
}
