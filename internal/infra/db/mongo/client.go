package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colProducts    = "agg_products"
	colAssets      = "agg_assets"
	colPeriods     = "agg_blocked_periods"
	colOrders      = "agg_orders"
	colCarts       = "agg_carts"
	colIssues      = "agg_rental_issues"
	colIdempotency = "app_idempotency"
)

type Client struct {
	DB *mongo.Database
}

func New(uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes repositories rely on. Asset codes are
// unique per product; carts are unique per user.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		colAssets: {
			{Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colPeriods: {
			{Keys: bson.D{{Key: "asset_id", Value: 1}, {Key: "start", Value: 1}, {Key: "end", Value: 1}}},
			{Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "start", Value: 1}}},
			{Keys: bson.D{{Key: "order_id", Value: 1}}},
		},
		colOrders: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "deposit_deadline", Value: 1}}},
		},
		colCarts: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colIssues: {
			{Keys: bson.D{{Key: "rental_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "reported_at", Value: -1}}},
		},
	}
	for name, models := range specs {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
