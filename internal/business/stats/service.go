package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/weiwei-tsao/complaint-portal/pkg/model"
	"golang.org/x/sync/errgroup"
)

// ReportStore answers the report queries the dashboard needs.
type ReportStore interface {
	CountByStatus(ctx context.Context, status string) (int, error)
	// CountByStatusCreatedBetween counts reports with from <= createdAt < until.
	CountByStatusCreatedBetween(ctx context.Context, status string, from, until time.Time) (int, error)
	// LatestUpdatedAt returns the newest updatedAt among reports with status,
	// or nil when there are none.
	LatestUpdatedAt(ctx context.Context, status string) (*time.Time, error)
}

// SatisfactionStore averages the first rating recorded for each complaint.
// ok is false when no numeric rating exists.
type SatisfactionStore interface {
	AverageFirstRating(ctx context.Context) (avg float64, ok bool, err error)
}

// Statuses names the persisted status values.
type Statuses struct {
	InProgress string
	Completed  string
}

// Service builds dashboard snapshots from the report and satisfaction stores.
type Service struct {
	reports      ReportStore
	satisfaction SatisfactionStore
	statuses     Statuses
	loc          *time.Location
	now          func() time.Time
	log          logrus.FieldLogger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the time zone used for month boundaries.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the logger used to report degraded satisfaction lookups.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func NewService(reports ReportStore, satisfaction SatisfactionStore, statuses Statuses, opts ...Option) *Service {
	s := &Service{
		reports:      reports,
		satisfaction: satisfaction,
		statuses:     statuses,
		loc:          time.Local,
		now:          time.Now,
		log:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot computes the dashboard numbers. Any report query failure fails the
// whole snapshot; a satisfaction failure only leaves Satisfaction nil.
func (s *Service) Snapshot(ctx context.Context) (model.StatsSnapshot, error) {
	_, prevMonth := MonthWindows(s.now(), s.loc)

	// Satisfaction runs outside the errgroup so its failure cannot cancel the
	// report queries.
	type satResult struct {
		avg float64
		ok  bool
		err error
	}
	satCh := make(chan satResult, 1)
	go func() {
		var res satResult
		defer func() {
			if r := recover(); r != nil {
				res = satResult{err: fmt.Errorf("satisfaction aggregation panicked: %v", r)}
			}
			satCh <- res
		}()
		res.avg, res.ok, res.err = s.satisfaction.AverageFirstRating(ctx)
	}()

	var (
		completed, inProgress, prevCompleted int
		latest                               *time.Time
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.reports.CountByStatus(gctx, s.statuses.Completed)
		if err != nil {
			return fmt.Errorf("count completed reports: %w", err)
		}
		completed = n
		return nil
	})
	g.Go(func() error {
		n, err := s.reports.CountByStatus(gctx, s.statuses.InProgress)
		if err != nil {
			return fmt.Errorf("count in-progress reports: %w", err)
		}
		inProgress = n
		return nil
	})
	g.Go(func() error {
		n, err := s.reports.CountByStatusCreatedBetween(gctx, s.statuses.Completed, prevMonth.From, prevMonth.Until)
		if err != nil {
			return fmt.Errorf("count previous month completed reports: %w", err)
		}
		prevCompleted = n
		return nil
	})
	g.Go(func() error {
		ts, err := s.reports.LatestUpdatedAt(gctx, s.statuses.InProgress)
		if err != nil {
			return fmt.Errorf("find latest in-progress update: %w", err)
		}
		latest = ts
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.StatsSnapshot{}, err
	}

	sat := <-satCh
	var satisfaction *int
	if sat.err != nil {
		s.log.WithError(sat.err).Warn("satisfaction aggregation failed, reporting null")
	} else {
		satisfaction = SatisfactionPercent(sat.avg, sat.ok)
	}

	return model.StatsSnapshot{
		InProgress:      clampCount(inProgress),
		Completed:       clampCount(completed),
		CompletedChange: CompletedChange(completed, prevCompleted),
		Satisfaction:    satisfaction,
		LatestUpdate:    latest,
	}, nil
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
