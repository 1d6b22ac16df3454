package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/weiwei-tsao/complaint-portal/internal/platform/logger"
)

const (
	statusInProgress = "in progress"
	statusCompleted  = "completed"
)

var testStatuses = Statuses{InProgress: statusInProgress, Completed: statusCompleted}

type fakeReport struct {
	status    string
	createdAt time.Time
	updatedAt time.Time
}

// fakeReports evaluates the store queries over an in-memory slice.
type fakeReports struct {
	items   []fakeReport
	failOn  string
	err     error
	windows []Window
}

func (f *fakeReports) CountByStatus(ctx context.Context, status string) (int, error) {
	if f.failOn == "count:"+status {
		return 0, f.err
	}
	n := 0
	for _, r := range f.items {
		if r.status == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeReports) CountByStatusCreatedBetween(ctx context.Context, status string, from, until time.Time) (int, error) {
	if f.failOn == "window" {
		return 0, f.err
	}
	f.windows = append(f.windows, Window{From: from, Until: until})
	n := 0
	for _, r := range f.items {
		if r.status == status && !r.createdAt.Before(from) && r.createdAt.Before(until) {
			n++
		}
	}
	return n, nil
}

func (f *fakeReports) LatestUpdatedAt(ctx context.Context, status string) (*time.Time, error) {
	if f.failOn == "latest" {
		return nil, f.err
	}
	var latest *time.Time
	for _, r := range f.items {
		if r.status != status {
			continue
		}
		if latest == nil || r.updatedAt.After(*latest) {
			ts := r.updatedAt
			latest = &ts
		}
	}
	return latest, nil
}

type fakeSatisfaction struct {
	avg   float64
	ok    bool
	err   error
	panic bool
}

func (f fakeSatisfaction) AverageFirstRating(ctx context.Context) (float64, bool, error) {
	if f.panic {
		panic("bad document shape")
	}
	return f.avg, f.ok, f.err
}

var (
	ict = time.FixedZone("ICT", 7*3600)
	now = time.Date(2025, time.May, 20, 9, 0, 0, 0, ict)
)

func at(month time.Month, day int) time.Time {
	return time.Date(2025, month, day, 12, 0, 0, 0, ict)
}

func newTestService(reports ReportStore, sat SatisfactionStore) *Service {
	return NewService(reports, sat, testStatuses,
		WithClock(func() time.Time { return now }),
		WithLocation(ict),
		WithLogger(logger.Discard()),
	)
}

func TestSnapshot(t *testing.T) {
	reports := &fakeReports{items: []fakeReport{
		{status: statusCompleted, createdAt: at(time.March, 2)},
		{status: statusCompleted, createdAt: at(time.April, 1)},
		{status: statusCompleted, createdAt: at(time.April, 30)},
		{status: statusCompleted, createdAt: at(time.May, 2)},
		{status: statusInProgress, createdAt: at(time.April, 3), updatedAt: at(time.May, 10)},
		{status: statusInProgress, createdAt: at(time.May, 1), updatedAt: at(time.May, 18)},
		{status: "rejected", createdAt: at(time.May, 1), updatedAt: at(time.May, 19)},
	}}
	svc := newTestService(reports, fakeSatisfaction{avg: 3, ok: true})

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Completed != 4 || snap.InProgress != 2 {
		t.Fatalf("counts = %d completed / %d in progress, want 4/2", snap.Completed, snap.InProgress)
	}
	// 2 completed in April; (4-2)/2 = +100%.
	assertIntPtr(t, snap.CompletedChange, intPtr(100))
	assertIntPtr(t, snap.Satisfaction, intPtr(60))
	if snap.LatestUpdate == nil || !snap.LatestUpdate.Equal(at(time.May, 18)) {
		t.Fatalf("latestUpdate = %v, want %s", snap.LatestUpdate, at(time.May, 18))
	}

	if len(reports.windows) != 1 {
		t.Fatalf("expected one windowed count, got %d", len(reports.windows))
	}
	w := reports.windows[0]
	if !w.From.Equal(time.Date(2025, time.April, 1, 0, 0, 0, 0, ict)) || !w.Until.Equal(time.Date(2025, time.May, 1, 0, 0, 0, 0, ict)) {
		t.Fatalf("unexpected previous month window %s - %s", w.From, w.Until)
	}
}

func TestSnapshotEmptyStore(t *testing.T) {
	svc := newTestService(&fakeReports{}, fakeSatisfaction{})

	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Completed != 0 || snap.InProgress != 0 {
		t.Fatalf("expected zero counts, got %+v", snap)
	}
	if snap.CompletedChange != nil || snap.Satisfaction != nil || snap.LatestUpdate != nil {
		t.Fatalf("expected null fields, got %+v", snap)
	}
}

func TestSnapshotNoPreviousMonthCompletions(t *testing.T) {
	reports := &fakeReports{items: []fakeReport{
		{status: statusCompleted, createdAt: at(time.May, 2)},
		{status: statusCompleted, createdAt: at(time.January, 2)},
	}}
	snap, err := newTestService(reports, fakeSatisfaction{}).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.CompletedChange != nil {
		t.Fatalf("completedChange = %d, want nil", *snap.CompletedChange)
	}
}

func TestSnapshotReportFailureFailsWhole(t *testing.T) {
	boom := errors.New("connection refused")
	for _, failOn := range []string{"count:" + statusCompleted, "count:" + statusInProgress, "window", "latest"} {
		t.Run(failOn, func(t *testing.T) {
			reports := &fakeReports{failOn: failOn, err: boom}
			snap, err := newTestService(reports, fakeSatisfaction{avg: 5, ok: true}).Snapshot(context.Background())
			if !errors.Is(err, boom) {
				t.Fatalf("expected wrapped store error, got %v", err)
			}
			if snap.Completed != 0 || snap.InProgress != 0 || snap.Satisfaction != nil || snap.LatestUpdate != nil {
				t.Fatalf("expected empty snapshot on failure, got %+v", snap)
			}
		})
	}
}

func TestSnapshotSatisfactionFailureDegrades(t *testing.T) {
	reports := &fakeReports{items: []fakeReport{
		{status: statusInProgress, updatedAt: at(time.May, 5)},
	}}
	for name, sat := range map[string]fakeSatisfaction{
		"error": {err: errors.New("collection missing")},
		"panic": {panic: true},
	} {
		t.Run(name, func(t *testing.T) {
			snap, err := newTestService(reports, sat).Snapshot(context.Background())
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}
			if snap.Satisfaction != nil {
				t.Fatalf("expected nil satisfaction, got %d", *snap.Satisfaction)
			}
			if snap.InProgress != 1 || snap.LatestUpdate == nil {
				t.Fatalf("other fields should still be populated, got %+v", snap)
			}
		})
	}
}

func TestSnapshotPreviousMonthBoundary(t *testing.T) {
	mayStart := time.Date(2025, time.May, 1, 0, 0, 0, 0, ict)
	reports := &fakeReports{items: []fakeReport{
		{status: statusCompleted, createdAt: time.Date(2025, time.April, 1, 0, 0, 0, 0, ict)},
		{status: statusCompleted, createdAt: mayStart.Add(-time.Microsecond)},
		{status: statusCompleted, createdAt: mayStart},
		{status: statusCompleted, createdAt: mayStart.Add(time.Hour)},
	}}
	snap, err := newTestService(reports, fakeSatisfaction{}).Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	// April holds the first two; (4-2)/2 = +100%.
	assertIntPtr(t, snap.CompletedChange, intPtr(100))
}
