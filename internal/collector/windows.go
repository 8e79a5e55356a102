package collector

import (
	"fmt"
	"time"
)

// Window is one calendar-month slice of a repository's collection range.
// Start and End are inclusive instants in UTC.
type Window struct {
	MonthKey string
	Start    time.Time
	End      time.Time
}

// MonthKey formats t's UTC calendar month as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// EffectiveStart is the later of the requested start and the repository creation time.
func EffectiveStart(start, createdAt time.Time) time.Time {
	if createdAt.After(start) {
		return createdAt
	}
	return start
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// monthEnd is the last millisecond of t's UTC month.
func monthEnd(t time.Time) time.Time {
	return monthStart(t).AddDate(0, 1, 0).Add(-time.Millisecond)
}

// MonthWindows partitions [start, end] into ascending calendar-month windows. The
// first window is clipped to start and the last to end. An inverted range yields
// no windows.
func MonthWindows(start, end time.Time) []Window {
	start, end = start.UTC(), end.UTC()
	if start.After(end) {
		return nil
	}

	var windows []Window
	for cursor := start; !cursor.After(end); cursor = monthStart(cursor).AddDate(0, 1, 0) {
		w := Window{
			MonthKey: MonthKey(cursor),
			Start:    cursor,
			End:      monthEnd(cursor),
		}
		if w.End.After(end) {
			w.End = end
		}
		windows = append(windows, w)
	}
	return windows
}

// StartsAtMonthStart reports whether the window begins on the 1st at midnight.
func (w Window) StartsAtMonthStart() bool {
	return w.Start.Equal(monthStart(w.Start))
}

// EndsAtMonthEnd reports whether the window runs to the month's last millisecond.
func (w Window) EndsAtMonthEnd() bool {
	return w.End.Equal(monthEnd(w.Start))
}

// DayBounds returns the first and last millisecond of day's calendar date in loc,
// expressed in UTC.
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := day.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start.UTC(), end.UTC()
}

// ParseDate accepts a calendar date (YYYY-MM-DD, UTC) or an RFC3339 timestamp. With
// endOfDay a bare date means its last millisecond.
func ParseDate(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
	}
	return t, nil
}
