package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodBounds(t *testing.T) {
	p := Period{Year: 2024, Month: time.January}

	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), p.Start())
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), p.End())
	assert.Equal(t, "2024-01", p.String())

	// Half-open: the start belongs to the period, the end does not.
	assert.True(t, p.Contains(p.Start()))
	assert.True(t, p.Contains(p.End().Add(-time.Nanosecond)))
	assert.False(t, p.Contains(p.End()))

	// December rolls into the next year.
	dec := Period{Year: 2024, Month: time.December}
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), dec.End())
}

func TestPeriodsAreContiguous(t *testing.T) {
	p := Period{Year: 2024, Month: time.March}
	next := PeriodOf(p.End())

	assert.Equal(t, p.End(), next.Start())
	assert.False(t, p.Contains(next.Start()))
}

func TestPreviousPeriod(t *testing.T) {
	tests := []struct {
		now  time.Time
		want Period
	}{
		{time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), Period{2024, time.January}},
		{time.Date(2024, time.February, 15, 12, 30, 0, 0, time.UTC), Period{2024, time.January}},
		{time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), Period{2023, time.December}},
		{time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC), Period{2024, time.November}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PreviousPeriod(tt.now), "now=%s", tt.now)
	}
}
