package catalog

import (
	"context"
	"sort"

	"stagerent/internal/app/dto"
	"stagerent/internal/app/handlers/support"
	"stagerent/internal/app/queries"
	"stagerent/internal/app/uow"
	domaincatalog "stagerent/internal/domain/catalog"
)

const (
	listProductsKey = "catalog.products.list"
	getProductKey   = "catalog.product.get"
)

type ListProductsQuery struct{}

func (q ListProductsQuery) Key() string { return listProductsKey }

func (q ListProductsQuery) AllowAnonymous() bool { return true }

type GetProductQuery struct {
	ProductID string
}

func (q GetProductQuery) Key() string { return getProductKey }

func (q GetProductQuery) AllowAnonymous() bool { return true }

type QueryHandlers struct {
	UoWFactory uow.UoWFactory
}

func (h *QueryHandlers) ListProducts(ctx context.Context, _ ListProductsQuery) (dto.ProductCollection, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ProductCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	products, err := unit.Products().List(execCtx)
	if err != nil {
		return dto.ProductCollection{}, err
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Title < products[j].Title })
	items := make([]dto.Product, 0, len(products))
	for _, p := range products {
		items = append(items, dto.MapProduct(p, nil))
	}
	return dto.ProductCollection{Items: items}, nil
}

func (h *QueryHandlers) GetProduct(ctx context.Context, q GetProductQuery) (dto.Product, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.Product{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	product, err := unit.Products().ByID(execCtx, domaincatalog.ProductID(q.ProductID))
	if err != nil {
		return dto.Product{}, err
	}
	assets, err := unit.Assets().ListByProduct(execCtx, product.ID)
	if err != nil {
		return dto.Product{}, err
	}
	return dto.MapProduct(product, assets), nil
}

func (h *QueryHandlers) Register(bus *queries.InMemoryBus) {
	queries.RegisterHandler(bus, listProductsKey, queries.HandlerFunc[ListProductsQuery, dto.ProductCollection](h.ListProducts))
	queries.RegisterHandler(bus, getProductKey, queries.HandlerFunc[GetProductQuery, dto.Product](h.GetProduct))
}
