package history

import (
	"fmt"
	"time"
)

// TimeRange is a selection of days-ago bounds. Start is the boundary closer
// to today, End the one further in the past. Start <= End always holds for
// ranges produced by RangeSelector.
type TimeRange struct {
	Start int `json:"start_days_ago"`
	End   int `json:"end_days_ago"`
}

func (r TimeRange) String() string {
	return fmt.Sprintf("%d..%d days ago", r.Start, r.End)
}

// Bounds converts the range into the [floor, ceiling) pair used to open a
// batch window. A range starting today extends the ceiling to tomorrow's
// midnight so that today's visits are included.
func (r TimeRange) Bounds(now time.Time) (floor, ceiling time.Time) {
	floor = DaysAgoToDate(now, r.End)
	if r.Start == 0 {
		return floor, DaysAgoToDate(now, -1)
	}
	return floor, DaysAgoToDate(now, r.Start)
}

// Days returns the oldest and newest calendar days whose visits fall inside
// Bounds. Since the ceiling is exclusive, a range {n, n} with n > 0 covers no
// day at all and ok is false.
func (r TimeRange) Days(now time.Time) (oldest, newest time.Time, ok bool) {
	floor, ceiling := r.Bounds(now)
	if !floor.Before(ceiling) {
		return time.Time{}, time.Time{}, false
	}
	return floor, ceiling.AddDate(0, 0, -1), true
}

// StoreExtent describes how far back the history store reaches.
type StoreExtent struct {
	Earliest   time.Time
	MaxDaysAgo int
	Empty      bool
}

// DefaultExtentDays is the synthetic extent used when the store holds no
// visits at all.
const DefaultExtentDays = 365

// Midnight truncates t to local midnight of its calendar day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysAgoToDate returns local midnight n calendar days before now's day.
// The result depends only on now's calendar date, so repeated calls on the
// same day agree. Negative n moves forward in time.
func DaysAgoToDate(now time.Time, n int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-n, 0, 0, 0, 0, now.Location())
}

// DaysBetween counts whole calendar days from a to b, ignoring the time of
// day and any DST offset change between them.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// FormatRelativeLabel renders the distance between date and reference as a
// human label ("Today", "3 days ago", "2 weeks ago", ...). Callers must use
// the same reference for every record rendered in one pass.
func FormatRelativeLabel(date, reference time.Time) string {
	diff := DaysBetween(date, reference)
	switch {
	case diff <= 0:
		return "Today"
	case diff == 1:
		return "1 day ago"
	case diff < 7:
		return fmt.Sprintf("%d days ago", diff)
	case diff < 14:
		return "1 week ago"
	case diff < 28:
		return fmt.Sprintf("%d weeks ago", diff/7)
	case diff < 60:
		return "1 month ago"
	case diff < 365:
		return fmt.Sprintf("%d months ago", diff/30)
	case diff < 730:
		return "1 year ago"
	default:
		return fmt.Sprintf("%d years ago", diff/365)
	}
}

// FormatAbsolute renders t as dd/mm/yy regardless of locale.
func FormatAbsolute(t time.Time) string {
	return t.Format("02/01/06")
}

// FormatTimeOfDay renders t as a 24-hour HH:MM string.
func FormatTimeOfDay(t time.Time) string {
	return t.Format("15:04")
}
