package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/weiwei-tsao/complaint-portal/pkg/model"
	"google.golang.org/api/iterator"
)

// NewFirestoreCollections returns a registry of collection refs bound to client.
func NewFirestoreCollections(client *firestore.Client) *HandleRegistry[*firestore.CollectionRef] {
	return NewHandleRegistry(client.Collection)
}

// FirestoreReportRepository answers report queries against Firestore.
// The latest-update query needs a composite index on (status, updatedAt desc).
type FirestoreReportRepository struct {
	collections *HandleRegistry[*firestore.CollectionRef]
	collection  string
}

func NewFirestoreReportRepository(collections *HandleRegistry[*firestore.CollectionRef], collection string) *FirestoreReportRepository {
	return &FirestoreReportRepository{collections: collections, collection: collection}
}

func (r *FirestoreReportRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	q := r.collections.Get(r.collection).Where("status", "==", status)
	n, err := countQuery(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("count %s with status %q: %w", r.collection, status, err)
	}
	return n, nil
}

func (r *FirestoreReportRepository) CountByStatusCreatedBetween(ctx context.Context, status string, from, until time.Time) (int, error) {
	q := r.collections.Get(r.collection).
		Where("status", "==", status).
		Where("createdAt", ">=", from).
		Where("createdAt", "<", until)
	n, err := countQuery(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("count %s with status %q created %s..%s: %w", r.collection, status, from.Format(time.RFC3339), until.Format(time.RFC3339), err)
	}
	return n, nil
}

func (r *FirestoreReportRepository) LatestUpdatedAt(ctx context.Context, status string) (*time.Time, error) {
	iter := r.collections.Get(r.collection).
		Where("status", "==", status).
		OrderBy("updatedAt", firestore.Desc).
		Limit(1).
		Select("updatedAt").
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest %s with status %q: %w", r.collection, status, err)
	}
	var report model.Report
	if err := doc.DataTo(&report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", doc.Ref.ID, err)
	}
	if report.UpdatedAt.IsZero() {
		return nil, nil
	}
	ts := report.UpdatedAt
	return &ts, nil
}

func countQuery(ctx context.Context, q firestore.Query) (int, error) {
	res, err := q.NewAggregationQuery().WithCount("count").Get(ctx)
	if err != nil {
		return 0, err
	}
	raw, ok := res["count"]
	if !ok {
		return 0, errors.New("count missing from aggregation result")
	}
	val, ok := raw.(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected count type %T", raw)
	}
	return int(val.GetIntegerValue()), nil
}

// FirestoreSatisfactionRepository averages first ratings per complaint.
// Firestore cannot group, so the reduced documents are streamed and
// de-duplicated in process.
type FirestoreSatisfactionRepository struct {
	collections *HandleRegistry[*firestore.CollectionRef]
	collection  string
}

func NewFirestoreSatisfactionRepository(collections *HandleRegistry[*firestore.CollectionRef], collection string) *FirestoreSatisfactionRepository {
	return &FirestoreSatisfactionRepository{collections: collections, collection: collection}
}

func (r *FirestoreSatisfactionRepository) AverageFirstRating(ctx context.Context) (float64, bool, error) {
	iter := r.collections.Get(r.collection).
		Select("complaintId", "rating", "createdAt").
		Documents(ctx)
	defer iter.Stop()

	var entries []ratingEntry
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return 0, false, fmt.Errorf("iterate %s: %w", r.collection, err)
		}
		data := doc.Data()
		entry := ratingEntry{
			complaintKey: complaintKey(data["complaintId"]),
			rating:       data["rating"],
			seq:          len(entries),
		}
		if ts, ok := data["createdAt"].(time.Time); ok {
			entry.createdAt = ts
		}
		entries = append(entries, entry)
	}

	avg, ok := averageFirstRatings(entries)
	return avg, ok, nil
}

// Ping checks the reports collection is readable.
func (r *FirestoreReportRepository) Ping(ctx context.Context) error {
	iter := r.collections.Get(r.collection).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("ping %s: %w", r.collection, err)
	}
	return nil
}
