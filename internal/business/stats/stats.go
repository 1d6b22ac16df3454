package stats

import (
	"math"
	"time"
)

// Window is a half-open time range [From, Until).
type Window struct {
	From  time.Time
	Until time.Time
}

// MonthWindows returns the start of the calendar month containing now and the
// range covering the whole previous month, both in loc. The previous month
// runs up to, but excluding, the current month start, so timestamps stored
// with sub-millisecond precision right before the boundary still count.
func MonthWindows(now time.Time, loc *time.Location) (currentStart time.Time, previous Window) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	currentStart = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	previousStart := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, loc)
	return currentStart, Window{From: previousStart, Until: currentStart}
}

// CompletedChange is the percentage change of the completed total relative to
// last month's completions. It is nil when last month had none.
//
// completed is the all-time total, not this month's, so the figure is not a
// like-for-like comparison. Dashboards already display it this way.
func CompletedChange(completed, previousMonth int) *int {
	if previousMonth <= 0 {
		return nil
	}
	change := roundHalfUp((float64(completed-previousMonth) / float64(previousMonth)) * 100)
	return &change
}

// SatisfactionPercent converts an average 1-5 rating into a 0-100 score.
func SatisfactionPercent(avgRating float64, ok bool) *int {
	if !ok || math.IsNaN(avgRating) || math.IsInf(avgRating, 0) {
		return nil
	}
	pct := roundHalfUp((avgRating / 5) * 100)
	return &pct
}

// roundHalfUp rounds .5 towards positive infinity (2.5 -> 3, -2.5 -> -2),
// unlike math.Round which rounds away from zero.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
