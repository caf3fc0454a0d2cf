package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stagerent/internal/domain/catalog"
)

type ProductRepository struct {
	col *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{col: db.Collection(colProducts)}
}

func (r *ProductRepository) ByID(ctx context.Context, id catalog.ProductID) (*catalog.Product, error) {
	var doc productDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	doc := newProductDocument(p)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *ProductRepository) List(ctx context.Context) ([]*catalog.Product, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []productDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*catalog.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

type AssetRepository struct {
	col *mongo.Collection
}

func NewAssetRepository(db *mongo.Database) *AssetRepository {
	return &AssetRepository{col: db.Collection(colAssets)}
}

func (r *AssetRepository) ByID(ctx context.Context, id catalog.AssetID) (*catalog.Asset, error) {
	var doc assetDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrAssetNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *AssetRepository) Save(ctx context.Context, a *catalog.Asset) error {
	doc := newAssetDocument(a)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return catalog.ErrAssetCodeTaken
	}
	return err
}

func (r *AssetRepository) ListByProduct(ctx context.Context, productID catalog.ProductID) ([]*catalog.Asset, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"product_id": string(productID)}, opts)
	if err != nil {
		return nil, err
	}
	var docs []assetDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*catalog.Asset, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}
