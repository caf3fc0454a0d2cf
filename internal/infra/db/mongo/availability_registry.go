package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stagerent/internal/domain/availability"
	"stagerent/internal/domain/shared/daterange"
)

type Registry struct {
	col *mongo.Collection
}

func NewRegistry(db *mongo.Database) *Registry {
	return &Registry{col: db.Collection(colPeriods)}
}

var periodSort = options.Find().SetSort(bson.D{{Key: "start", Value: 1}, {Key: "_id", Value: 1}})

func (r *Registry) ListFor(ctx context.Context, subject string, window daterange.DateRange) ([]availability.BlockedPeriod, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"asset_id": subject},
			bson.M{"asset_id": "", "product_id": subject},
		},
		"start": bson.M{"$lte": window.End},
		"end":   bson.M{"$gte": window.Start},
	}
	return r.find(ctx, filter)
}

func (r *Registry) Add(ctx context.Context, period availability.BlockedPeriod) (availability.BlockedPeriod, error) {
	if _, err := r.col.InsertOne(ctx, newPeriodDocument(period)); err != nil {
		return availability.BlockedPeriod{}, err
	}
	return period, nil
}

func (r *Registry) RemoveByOrder(ctx context.Context, orderID string) (int, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"order_id": orderID, "reason": string(availability.ReasonOrder)})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

func (r *Registry) Remove(ctx context.Context, id availability.PeriodID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return availability.ErrPeriodNotFound
	}
	return nil
}

func (r *Registry) ByID(ctx context.Context, id availability.PeriodID) (availability.BlockedPeriod, error) {
	var doc periodDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return availability.BlockedPeriod{}, availability.ErrPeriodNotFound
		}
		return availability.BlockedPeriod{}, err
	}
	return doc.toPeriod(), nil
}

func (r *Registry) ByOrder(ctx context.Context, orderID string) ([]availability.BlockedPeriod, error) {
	return r.find(ctx, bson.M{"order_id": orderID})
}

func (r *Registry) UpdateMetadata(ctx context.Context, id availability.PeriodID, notes string, reason availability.Reason) (availability.BlockedPeriod, error) {
	current, err := r.ByID(ctx, id)
	if err != nil {
		return availability.BlockedPeriod{}, err
	}
	if reason != "" && reason != current.Reason {
		if !reason.Valid() {
			return availability.BlockedPeriod{}, availability.ErrInvalidReason
		}
		if current.IsHold() || reason == availability.ReasonOrder {
			return availability.BlockedPeriod{}, availability.ErrReasonImmutable
		}
		current.Reason = reason
	}
	current.Notes = notes
	update := bson.M{"$set": bson.M{"notes": current.Notes, "reason": string(current.Reason)}}
	if _, err := r.col.UpdateByID(ctx, string(id), update); err != nil {
		return availability.BlockedPeriod{}, err
	}
	return current, nil
}

func (r *Registry) find(ctx context.Context, filter bson.M) ([]availability.BlockedPeriod, error) {
	cur, err := r.col.Find(ctx, filter, periodSort)
	if err != nil {
		return nil, err
	}
	var docs []periodDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]availability.BlockedPeriod, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toPeriod())
	}
	return out, nil
}

var _ availability.Registry = (*Registry)(nil)
