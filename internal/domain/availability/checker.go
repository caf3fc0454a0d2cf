package availability

import (
	"context"
	"time"

	"stagerent/internal/domain/catalog"
	"stagerent/internal/domain/shared/daterange"
)

// Checker is the single decision point for "can X be reserved for R".
type Checker struct {
	Registry Registry
	Assets   catalog.AssetRepository
	Now      func() time.Time
}

func NewChecker(registry Registry, assets catalog.AssetRepository) Checker {
	return Checker{Registry: registry, Assets: assets}
}

func (c Checker) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

// IsAvailable reports whether no blocked period of the asset, nor a
// product-level period of its product, overlaps r. Past ranges never are.
func (c Checker) IsAvailable(ctx context.Context, assetID catalog.AssetID, r daterange.DateRange) (bool, error) {
	asset, err := c.Assets.ByID(ctx, assetID)
	if err != nil {
		return false, err
	}
	legacy, err := c.Registry.ListFor(ctx, string(asset.ProductID), r)
	if err != nil {
		return false, err
	}
	return c.assetFree(ctx, asset, r, len(legacy) > 0)
}

// IsProductAvailable reports whether at least one non-retired asset is free.
func (c Checker) IsProductAvailable(ctx context.Context, productID catalog.ProductID, r daterange.DateRange) (bool, error) {
	free, err := c.AvailableAssets(ctx, productID, r, 1)
	if err != nil {
		return false, err
	}
	return len(free) > 0, nil
}

func (c Checker) AvailableCount(ctx context.Context, productID catalog.ProductID, r daterange.DateRange) (int, error) {
	free, err := c.AvailableAssets(ctx, productID, r, 0)
	if err != nil {
		return 0, err
	}
	return len(free), nil
}

// AvailableAssets returns free assets in creation order, first-fit. A limit
// of zero or less returns all of them.
func (c Checker) AvailableAssets(ctx context.Context, productID catalog.ProductID, r daterange.DateRange, limit int) ([]*catalog.Asset, error) {
	if r.InPast(c.now()) {
		return nil, nil
	}
	legacy, err := c.Registry.ListFor(ctx, string(productID), r)
	if err != nil {
		return nil, err
	}
	if len(legacy) > 0 {
		return nil, nil
	}
	assets, err := c.Assets.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	free := make([]*catalog.Asset, 0, len(assets))
	for _, asset := range assets {
		if !asset.Reservable() {
			continue
		}
		ok, err := c.assetFree(ctx, asset, r, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		free = append(free, asset)
		if limit > 0 && len(free) >= limit {
			break
		}
	}
	return free, nil
}

func (c Checker) assetFree(ctx context.Context, asset *catalog.Asset, r daterange.DateRange, productBlocked bool) (bool, error) {
	if productBlocked || !asset.Reservable() {
		return false, nil
	}
	if r.InPast(c.now()) {
		return false, nil
	}
	periods, err := c.Registry.ListFor(ctx, string(asset.ID), r)
	if err != nil {
		return false, err
	}
	return len(periods) == 0, nil
}
