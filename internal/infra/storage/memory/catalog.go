package memory

import (
	"context"
	"sort"

	"stagerent/internal/domain/catalog"
	"stagerent/internal/domain/shared/events"
)

type ProductRepository struct {
	store   *Store
	journal *journal
}

func (r *ProductRepository) ByID(ctx context.Context, id catalog.ProductID) (*catalog.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (r *ProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	id := product.ID
	prev, existed := r.store.products[id]
	r.store.products[id] = cloneProduct(product)
	r.journal.record(func() {
		if existed {
			r.store.products[id] = prev
		} else {
			delete(r.store.products, id)
		}
	})
	return nil
}

func (r *ProductRepository) List(ctx context.Context) ([]*catalog.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*catalog.Product, 0, len(r.store.products))
	for _, p := range r.store.products {
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type AssetRepository struct {
	store   *Store
	journal *journal
}

func (r *AssetRepository) ByID(ctx context.Context, id catalog.AssetID) (*catalog.Asset, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	a, ok := r.store.assets[id]
	if !ok {
		return nil, catalog.ErrAssetNotFound
	}
	return cloneAsset(a), nil
}

func (r *AssetRepository) Save(ctx context.Context, asset *catalog.Asset) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	id := asset.ID
	prev, existed := r.store.assets[id]
	r.store.assets[id] = cloneAsset(asset)
	r.journal.record(func() {
		if existed {
			r.store.assets[id] = prev
		} else {
			delete(r.store.assets, id)
		}
	})
	return nil
}

func (r *AssetRepository) ListByProduct(ctx context.Context, productID catalog.ProductID) ([]*catalog.Asset, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*catalog.Asset, 0)
	for _, a := range r.store.assets {
		if a.ProductID == productID {
			out = append(out, cloneAsset(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func cloneProduct(p *catalog.Product) *catalog.Product {
	c := *p
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneAsset(a *catalog.Asset) *catalog.Asset {
	c := *a
	c.EventRecorder = events.EventRecorder{}
	return &c
}
