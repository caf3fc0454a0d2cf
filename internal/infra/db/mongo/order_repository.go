package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stagerent/internal/app/uow"
	"stagerent/internal/domain/cart"
	"stagerent/internal/domain/order"
)

type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{col: db.Collection(colOrders)}
}

func (r *OrderRepository) ByID(ctx context.Context, id order.OrderID) (*order.Order, error) {
	var doc orderDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, order.ErrOrderNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	doc := newOrderDocument(o)
	doc.Version = o.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, o.Version, doc); err != nil {
		return err
	}
	o.Version = doc.Version
	return nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *OrderRepository) ListByStatus(ctx context.Context, status order.Status) ([]*order.Order, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = string(status)
	}
	return r.find(ctx, filter)
}

func (r *OrderRepository) ListAwaitingPayment(ctx context.Context, cutoff time.Time) ([]*order.Order, error) {
	var waiting []string
	for _, s := range order.Statuses() {
		if s.AwaitingPayment() {
			waiting = append(waiting, string(s))
		}
	}
	filter := bson.M{
		"status":           bson.M{"$in": waiting},
		"deposit_deadline": bson.M{"$lt": cutoff, "$gt": time.Time{}},
	}
	return r.find(ctx, filter)
}

func (r *OrderRepository) find(ctx context.Context, filter bson.M) ([]*order.Order, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []orderDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*order.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

type CartRepository struct {
	col *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{col: db.Collection(colCarts)}
}

func (r *CartRepository) ByID(ctx context.Context, id cart.CartID) (*cart.Cart, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *CartRepository) ByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	return r.findOne(ctx, bson.M{"user_id": userID})
}

func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	doc := newCartDocument(c)
	doc.Version = c.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, c.Version, doc); err != nil {
		return err
	}
	c.Version = doc.Version
	return nil
}

func (r *CartRepository) findOne(ctx context.Context, filter bson.M) (*cart.Cart, error) {
	var doc cartDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cart.ErrCartNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// saveVersioned upserts doc only while the stored version still equals
// expected. A lost race surfaces either as no match or as a duplicate _id.
func saveVersioned(ctx context.Context, col *mongo.Collection, id string, expected int64, doc any) error {
	filter := bson.M{"_id": id, "version": expected}
	res, err := col.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return uow.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return uow.ErrConcurrentUpdate
	}
	return nil
}
