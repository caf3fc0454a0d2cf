package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stagerent/internal/domain/issue"
)

type IssueRepository struct {
	col *mongo.Collection
}

func NewIssueRepository(db *mongo.Database) *IssueRepository {
	return &IssueRepository{col: db.Collection(colIssues)}
}

func (r *IssueRepository) ByID(ctx context.Context, id issue.IssueID) (*issue.RentalIssue, error) {
	var doc issueDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, issue.ErrIssueNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *IssueRepository) Save(ctx context.Context, is *issue.RentalIssue) error {
	doc := newIssueDocument(is)
	doc.Version = is.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, is.Version, doc); err != nil {
		return err
	}
	is.Version = doc.Version
	return nil
}

func (r *IssueRepository) List(ctx context.Context, status issue.Status) ([]*issue.RentalIssue, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = string(status)
	}
	return r.find(ctx, filter)
}

func (r *IssueRepository) ListByRental(ctx context.Context, rentalID string) ([]*issue.RentalIssue, error) {
	return r.find(ctx, bson.M{"rental_id": rentalID})
}

func (r *IssueRepository) find(ctx context.Context, filter bson.M) ([]*issue.RentalIssue, error) {
	opts := options.Find().SetSort(bson.D{{Key: "reported_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []issueDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*issue.RentalIssue, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}
