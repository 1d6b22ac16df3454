package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// These tests need a reachable MongoDB:
//
//	docker run --rm -p 27017:27017 mongo:7
//	MONGO_URI=mongodb://localhost:27017 go test ./internal/repository/...
func newMongoTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("mongo connect: %v", err)
	}
	db := client.Database(fmt.Sprintf("complaints_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

func TestMongoReportRepository(t *testing.T) {
	db := newMongoTestDB(t)
	ctx := context.Background()

	april := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	may := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	mayStart := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err := db.Collection("submittedreports").InsertMany(ctx, []any{
		bson.M{"status": "done", "createdAt": april, "updatedAt": april},
		bson.M{"status": "done", "createdAt": mayStart.Add(-time.Millisecond), "updatedAt": april},
		bson.M{"status": "done", "createdAt": mayStart, "updatedAt": mayStart},
		bson.M{"status": "open", "createdAt": april, "updatedAt": may},
		bson.M{"status": "open", "createdAt": april, "updatedAt": april, "photos": bson.A{"a.jpg"}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	repo := NewMongoReportRepository(NewMongoCollections(db), "submittedreports")

	n, err := repo.CountByStatus(ctx, "done")
	if err != nil || n != 3 {
		t.Fatalf("CountByStatus = %d, %v; want 3", n, err)
	}
	n, err = repo.CountByStatusCreatedBetween(ctx, "done", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), mayStart)
	if err != nil || n != 2 {
		t.Fatalf("CountByStatusCreatedBetween = %d, %v; want 2", n, err)
	}
	latest, err := repo.LatestUpdatedAt(ctx, "open")
	if err != nil || latest == nil || !latest.Equal(may) {
		t.Fatalf("LatestUpdatedAt = %v, %v; want %s", latest, err, may)
	}
	latest, err = repo.LatestUpdatedAt(ctx, "missing")
	if err != nil || latest != nil {
		t.Fatalf("LatestUpdatedAt(missing) = %v, %v; want nil", latest, err)
	}
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestMongoSatisfactionRepository(t *testing.T) {
	t0 := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		docs    []any
		wantAvg float64
		wantOK  bool
	}{
		{name: "empty collection", docs: nil, wantOK: false},
		{
			name: "one and five",
			docs: []any{
				bson.M{"complaintId": "a", "rating": 1, "createdAt": t0},
				bson.M{"complaintId": "b", "rating": 5, "createdAt": t0},
			},
			wantAvg: 3, wantOK: true,
		},
		{
			name: "only the first rating per complaint counts",
			docs: []any{
				bson.M{"complaintId": "a", "rating": 5, "createdAt": t0.Add(time.Hour)},
				bson.M{"complaintId": "a", "rating": 1, "createdAt": t0},
				bson.M{"complaintId": "b", "rating": 5, "createdAt": t0},
			},
			wantAvg: 3, wantOK: true,
		},
		{
			name: "non numeric ratings are skipped",
			docs: []any{
				bson.M{"complaintId": "a", "rating": "five", "createdAt": t0},
				bson.M{"complaintId": "b", "rating": 4, "createdAt": t0},
			},
			wantAvg: 4, wantOK: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := newMongoTestDB(t)
			ctx := context.Background()
			if len(tc.docs) > 0 {
				if _, err := db.Collection("satisfactions").InsertMany(ctx, tc.docs); err != nil {
					t.Fatalf("seed: %v", err)
				}
			}

			repo := NewMongoSatisfactionRepository(NewMongoCollections(db), "satisfactions")
			avg, ok, err := repo.AverageFirstRating(ctx)
			if err != nil {
				t.Fatalf("AverageFirstRating: %v", err)
			}
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && avg != tc.wantAvg {
				t.Fatalf("avg = %v, want %v", avg, tc.wantAvg)
			}
		})
	}
}
