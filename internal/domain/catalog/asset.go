package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stagerent/internal/domain/shared/events"
)

var (
	ErrAssetNotFound     = errors.New("catalog: asset not found")
	ErrAssetCodeRequired = errors.New("catalog: asset code is required")
	ErrAssetCodeTaken    = errors.New("catalog: asset code already used for product")
	ErrInvalidStatus     = errors.New("catalog: invalid asset status")
	ErrInvalidCondition  = errors.New("catalog: invalid condition grade")
	ErrAssetRetired      = errors.New("catalog: asset is retired")
)

type AssetID string

type AssetStatus string

const (
	AssetAvailable   AssetStatus = "available"
	AssetRented      AssetStatus = "rented"
	AssetMaintenance AssetStatus = "maintenance"
	AssetRetired     AssetStatus = "retired"
)

func (s AssetStatus) Valid() bool {
	switch s {
	case AssetAvailable, AssetRented, AssetMaintenance, AssetRetired:
		return true
	}
	return false
}

type ConditionGrade string

const (
	GradeA ConditionGrade = "A"
	GradeB ConditionGrade = "B"
	GradeC ConditionGrade = "C"
)

func (g ConditionGrade) Valid() bool {
	return g == GradeA || g == GradeB || g == GradeC
}

// Asset is one physical unit of a product. Assets are retired, never deleted,
// because historical rentals keep pointing at them.
type Asset struct {
	ID        AssetID
	ProductID ProductID
	Code      string
	Status    AssetStatus
	Condition ConditionGrade
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
	events.EventRecorder
}

type AssetRepository interface {
	ByID(ctx context.Context, id AssetID) (*Asset, error)
	Save(ctx context.Context, asset *Asset) error
	// ListByProduct returns assets ordered by creation time, then id.
	ListByProduct(ctx context.Context, productID ProductID) ([]*Asset, error)
}

type CreateAssetParams struct {
	ID        AssetID
	ProductID ProductID
	Code      string
	Condition ConditionGrade
	Notes     string
	Now       time.Time
}

func NewAsset(params CreateAssetParams) (*Asset, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("catalog: asset id is required")
	}
	if strings.TrimSpace(string(params.ProductID)) == "" {
		return nil, ErrProductIDMissing
	}
	code := strings.TrimSpace(params.Code)
	if code == "" {
		return nil, ErrAssetCodeRequired
	}
	grade := params.Condition
	if grade == "" {
		grade = GradeA
	}
	if !grade.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCondition, grade)
	}
	now := params.Now.UTC()
	a := &Asset{
		ID:        params.ID,
		ProductID: params.ProductID,
		Code:      code,
		Status:    AssetAvailable,
		Condition: grade,
		Notes:     strings.TrimSpace(params.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	a.Record(AssetStatusChanged{AssetID: a.ID, ProductID: a.ProductID, To: a.Status, At: now})
	return a, nil
}

// Reservable reports whether the asset may ever be allocated to a rental.
func (a *Asset) Reservable() bool {
	return a.Status != AssetRetired
}

func (a *Asset) SetStatus(status AssetStatus, now time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if a.Status == AssetRetired {
		return ErrAssetRetired
	}
	if a.Status == status {
		return nil
	}
	from := a.Status
	a.Status = status
	a.UpdatedAt = now.UTC()
	a.Record(AssetStatusChanged{AssetID: a.ID, ProductID: a.ProductID, From: from, To: status, At: a.UpdatedAt})
	return nil
}

func (a *Asset) Retire(now time.Time) error {
	return a.SetStatus(AssetRetired, now)
}

func (a *Asset) Grade(grade ConditionGrade, now time.Time) error {
	if !grade.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCondition, grade)
	}
	a.Condition = grade
	a.UpdatedAt = now.UTC()
	return nil
}

type AssetStatusChanged struct {
	AssetID   AssetID
	ProductID ProductID
	From      AssetStatus
	To        AssetStatus
	At        time.Time
}

func (e AssetStatusChanged) EventName() string     { return "catalog.asset_status_changed" }
func (e AssetStatusChanged) AggregateID() string   { return string(e.AssetID) }
func (e AssetStatusChanged) OccurredAt() time.Time { return e.At }
