package availability

import (
	"context"
	"time"

	"stagerent/internal/app/dto"
	"stagerent/internal/app/handlers/support"
	"stagerent/internal/app/queries"
	"stagerent/internal/app/uow"
	domainavailability "stagerent/internal/domain/availability"
	domaincatalog "stagerent/internal/domain/catalog"
	"stagerent/internal/domain/shared/daterange"
)

const (
	productAvailabilityKey = "availability.product"
	assetAvailabilityKey   = "availability.asset"
	calendarKey            = "availability.calendar"
)

type ProductAvailabilityQuery struct {
	ProductID string
	Range     daterange.DateRange
}

func (q ProductAvailabilityQuery) Key() string { return productAvailabilityKey }

func (q ProductAvailabilityQuery) AllowAnonymous() bool { return true }

type AssetAvailabilityQuery struct {
	AssetID string
	Range   daterange.DateRange
}

func (q AssetAvailabilityQuery) Key() string { return assetAvailabilityKey }

// CalendarQuery lists blocked periods of an asset, or the product-level
// periods of a product, inside Window.
type CalendarQuery struct {
	Subject string
	Window  daterange.DateRange
}

func (q CalendarQuery) Key() string { return calendarKey }

type QueryHandlers struct {
	UoWFactory uow.UoWFactory
	Clock      support.Clock
}

func (h *QueryHandlers) checker(unit uow.UnitOfWork) domainavailability.Checker {
	c := domainavailability.NewChecker(unit.Availability(), unit.Assets())
	c.Now = func() time.Time { return h.Clock.Now() }
	return c
}

func (h *QueryHandlers) Product(ctx context.Context, q ProductAvailabilityQuery) (dto.ProductAvailability, error) {
	if err := q.Range.Validate(); err != nil {
		return dto.ProductAvailability{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ProductAvailability{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	productID := domaincatalog.ProductID(q.ProductID)
	if _, err := unit.Products().ByID(execCtx, productID); err != nil {
		return dto.ProductAvailability{}, err
	}
	free, err := h.checker(unit).AvailableAssets(execCtx, productID, q.Range, 0)
	if err != nil {
		return dto.ProductAvailability{}, err
	}
	ids := make([]string, 0, len(free))
	for _, a := range free {
		ids = append(ids, string(a.ID))
	}
	return dto.ProductAvailability{
		ProductID: q.ProductID,
		Range:     dto.MapRange(q.Range),
		Available: len(free) > 0,
		Count:     len(free),
		AssetIDs:  ids,
	}, nil
}

func (h *QueryHandlers) Asset(ctx context.Context, q AssetAvailabilityQuery) (dto.AssetAvailability, error) {
	if err := q.Range.Validate(); err != nil {
		return dto.AssetAvailability{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.AssetAvailability{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	ok, err := h.checker(unit).IsAvailable(execCtx, domaincatalog.AssetID(q.AssetID), q.Range)
	if err != nil {
		return dto.AssetAvailability{}, err
	}
	return dto.AssetAvailability{AssetID: q.AssetID, Range: dto.MapRange(q.Range), Available: ok}, nil
}

func (h *QueryHandlers) Calendar(ctx context.Context, q CalendarQuery) (dto.Calendar, error) {
	if err := q.Window.Validate(); err != nil {
		return dto.Calendar{}, err
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Calendar{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	periods, err := unit.Availability().ListFor(execCtx, q.Subject, q.Window)
	if err != nil {
		return dto.Calendar{}, err
	}
	return dto.Calendar{
		Subject: q.Subject,
		Window:  dto.MapRange(q.Window),
		Blocked: dto.MapBlockedPeriods(periods),
	}, nil
}

func (h *QueryHandlers) Register(bus *queries.InMemoryBus) {
	queries.RegisterHandler(bus, productAvailabilityKey, queries.HandlerFunc[ProductAvailabilityQuery, dto.ProductAvailability](h.Product))
	queries.RegisterHandler(bus, assetAvailabilityKey, queries.HandlerFunc[AssetAvailabilityQuery, dto.AssetAvailability](h.Asset))
	queries.RegisterHandler(bus, calendarKey, queries.HandlerFunc[CalendarQuery, dto.Calendar](h.Calendar))
}
