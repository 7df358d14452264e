package billing

import (
	"fmt"
	"time"
)

// Period identifies one calendar month of billing. Periods are half-open
// time intervals [Start, End) in UTC, contiguous and non-overlapping.
type Period struct {
	Year  int
	Month time.Month
}

// Start returns the first instant of the period (inclusive).
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant after the period (exclusive).
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Contains reports whether t falls inside [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start()) && t.Before(p.End())
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Month: t.Month()}
}

// PreviousPeriod returns the month immediately before now. The scheduled
// run bills this period: invoking on the first of a month bills the month
// that just ended, including across year boundaries.
func PreviousPeriod(now time.Time) Period {
	start := PeriodOf(now).Start().AddDate(0, -1, 0)
	return Period{Year: start.Year(), Month: start.Month()}
}
