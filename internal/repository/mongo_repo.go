package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongoCollections returns a registry of collection handles bound to db.
func NewMongoCollections(db *mongo.Database) *HandleRegistry[*mongo.Collection] {
	return NewHandleRegistry(func(name string) *mongo.Collection {
		return db.Collection(name)
	})
}

// MongoReportRepository answers report queries against MongoDB.
type MongoReportRepository struct {
	collections *HandleRegistry[*mongo.Collection]
	collection  string
}

func NewMongoReportRepository(collections *HandleRegistry[*mongo.Collection], collection string) *MongoReportRepository {
	return &MongoReportRepository{collections: collections, collection: collection}
}

func (r *MongoReportRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	n, err := r.collections.Get(r.collection).CountDocuments(ctx, statusFilter(status))
	if err != nil {
		return 0, fmt.Errorf("count %s with status %q: %w", r.collection, status, err)
	}
	return int(n), nil
}

func (r *MongoReportRepository) CountByStatusCreatedBetween(ctx context.Context, status string, from, until time.Time) (int, error) {
	n, err := r.collections.Get(r.collection).CountDocuments(ctx, createdBetweenFilter(status, from, until))
	if err != nil {
		return 0, fmt.Errorf("count %s with status %q created %s..%s: %w", r.collection, status, from.Format(time.RFC3339), until.Format(time.RFC3339), err)
	}
	return int(n), nil
}

func (r *MongoReportRepository) LatestUpdatedAt(ctx context.Context, status string) (*time.Time, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetProjection(bson.M{"updatedAt": 1})

	var doc struct {
		UpdatedAt *time.Time `bson:"updatedAt"`
	}
	err := r.collections.Get(r.collection).FindOne(ctx, statusFilter(status), opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest %s with status %q: %w", r.collection, status, err)
	}
	return doc.UpdatedAt, nil
}

// Ping checks the reports collection is readable.
func (r *MongoReportRepository) Ping(ctx context.Context) error {
	coll := r.collections.Get(r.collection)
	if err := coll.Database().Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping %s: %w", r.collection, err)
	}
	return nil
}

func statusFilter(status string) bson.M {
	return bson.M{"status": status}
}

func createdBetweenFilter(status string, from, until time.Time) bson.M {
	return bson.M{
		"status":    status,
		"createdAt": bson.M{"$gte": from, "$lt": until},
	}
}

// MongoSatisfactionRepository averages first ratings per complaint with an
// aggregation pipeline.
type MongoSatisfactionRepository struct {
	collections *HandleRegistry[*mongo.Collection]
	collection  string
}

func NewMongoSatisfactionRepository(collections *HandleRegistry[*mongo.Collection], collection string) *MongoSatisfactionRepository {
	return &MongoSatisfactionRepository{collections: collections, collection: collection}
}

func (r *MongoSatisfactionRepository) AverageFirstRating(ctx context.Context) (float64, bool, error) {
	cursor, err := r.collections.Get(r.collection).Aggregate(ctx, firstRatingPipeline())
	if err != nil {
		return 0, false, fmt.Errorf("aggregate %s: %w", r.collection, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		AvgRating *float64 `bson:"avgRating"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, false, fmt.Errorf("decode %s aggregate: %w", r.collection, err)
	}
	if len(rows) == 0 || rows[0].AvgRating == nil {
		return 0, false, nil
	}
	return *rows[0].AvgRating, true, nil
}

// firstRatingPipeline orders ratings by creation (then insertion, via _id),
// keeps the first per complaint and averages them. $avg skips non-numeric
// values and yields null when none remain.
func firstRatingPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$complaintId"},
			{Key: "rating", Value: bson.D{{Key: "$first", Value: "$rating"}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avgRating", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
		}}},
	}
}
