package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stagerent/internal/domain/catalog"
	"stagerent/internal/domain/shared/daterange"
)

var (
	ErrPeriodNotFound  = errors.New("availability: blocked period not found")
	ErrSubjectRequired = errors.New("availability: asset or product id is required")
	ErrOrderRequired   = errors.New("availability: order blocks must reference an order")
	ErrInvalidReason   = errors.New("availability: invalid block reason")
	ErrReasonImmutable = errors.New("availability: order blocks cannot change reason")
	ErrHoldManaged     = errors.New("availability: order holds are managed by their order")
)

type PeriodID string

type Reason string

const (
	ReasonOrder       Reason = "order"
	ReasonMaintenance Reason = "maintenance"
	ReasonManual      Reason = "manual"
)

func (r Reason) Valid() bool {
	return r == ReasonOrder || r == ReasonMaintenance || r == ReasonManual
}

// BlockedPeriod is an interval during which an asset cannot be newly reserved.
// A period without AssetID is a legacy product-level block that applies to
// every asset of ProductID.
type BlockedPeriod struct {
	ID        PeriodID
	AssetID   catalog.AssetID
	ProductID catalog.ProductID
	Range     daterange.DateRange
	Reason    Reason
	OrderID   string
	Notes     string
	CreatedBy string
	CreatedAt time.Time
}

// ProductLevel reports whether the period predates per-asset tracking.
func (p BlockedPeriod) ProductLevel() bool {
	return p.AssetID == ""
}

// IsHold reports whether the period reserves inventory for an order.
func (p BlockedPeriod) IsHold() bool {
	return p.Reason == ReasonOrder
}

type NewPeriodParams struct {
	ID        PeriodID
	AssetID   catalog.AssetID
	ProductID catalog.ProductID
	Range     daterange.DateRange
	Reason    Reason
	OrderID   string
	Notes     string
	CreatedBy string
	Now       time.Time
}

func NewBlockedPeriod(params NewPeriodParams) (BlockedPeriod, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return BlockedPeriod{}, errors.New("availability: period id is required")
	}
	if params.AssetID == "" && params.ProductID == "" {
		return BlockedPeriod{}, ErrSubjectRequired
	}
	if err := params.Range.Validate(); err != nil {
		return BlockedPeriod{}, err
	}
	reason := params.Reason
	if reason == "" {
		reason = ReasonManual
	}
	if !reason.Valid() {
		return BlockedPeriod{}, fmt.Errorf("%w: %q", ErrInvalidReason, reason)
	}
	orderID := strings.TrimSpace(params.OrderID)
	if reason == ReasonOrder && orderID == "" {
		return BlockedPeriod{}, ErrOrderRequired
	}
	return BlockedPeriod{
		ID:        params.ID,
		AssetID:   params.AssetID,
		ProductID: params.ProductID,
		Range:     params.Range,
		Reason:    reason,
		OrderID:   orderID,
		Notes:     strings.TrimSpace(params.Notes),
		CreatedBy: params.CreatedBy,
		CreatedAt: params.Now.UTC(),
	}, nil
}

// Registry is the authoritative store of blocked periods.
type Registry interface {
	// ListFor returns periods of the asset, or product-level periods of the
	// product, that overlap window.
	ListFor(ctx context.Context, subject string, window daterange.DateRange) ([]BlockedPeriod, error)
	// Add inserts unconditionally; callers check availability first.
	Add(ctx context.Context, period BlockedPeriod) (BlockedPeriod, error)
	// RemoveByOrder deletes order holds of orderID and reports how many went.
	RemoveByOrder(ctx context.Context, orderID string) (int, error)
	Remove(ctx context.Context, id PeriodID) error
	ByID(ctx context.Context, id PeriodID) (BlockedPeriod, error)
	ByOrder(ctx context.Context, orderID string) ([]BlockedPeriod, error)
	// UpdateMetadata changes notes and reason; ranges are replaced, not patched.
	UpdateMetadata(ctx context.Context, id PeriodID, notes string, reason Reason) (BlockedPeriod, error)
}
