package repository

import (
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
)

// ratingEntry is one satisfaction document reduced to what the average needs.
type ratingEntry struct {
	complaintKey string
	rating       any
	createdAt    time.Time
	seq          int // store order, breaks createdAt ties
}

// averageFirstRatings keeps the earliest entry per complaint and averages the
// numeric ratings among them. Entries whose first rating is not a number drop
// out of the average instead of failing it.
func averageFirstRatings(entries []ratingEntry) (float64, bool) {
	sorted := make([]ratingEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].createdAt.Equal(sorted[j].createdAt) {
			return sorted[i].createdAt.Before(sorted[j].createdAt)
		}
		return sorted[i].seq < sorted[j].seq
	})

	seen := make(map[string]struct{}, len(sorted))
	var sum float64
	var n int
	for _, e := range sorted {
		if _, ok := seen[e.complaintKey]; ok {
			continue
		}
		seen[e.complaintKey] = struct{}{}
		if v, ok := toFloat(e.rating); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// complaintKey normalizes a complaint reference so ids stored as strings and
// as document references group together. A missing id forms its own group.
func complaintKey(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *firestore.DocumentRef:
		if x == nil {
			return ""
		}
		return x.ID
	default:
		return fmt.Sprint(x)
	}
}
