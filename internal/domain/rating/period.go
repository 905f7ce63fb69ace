package rating

import (
	"fmt"
	"time"
)

// Granularity is the size of a rating period.
type Granularity string

// Supported period sizes. Year is the default.
const (
	Year  Granularity = "year"
	Month Granularity = "month"
	Week  Granularity = "week"
)

// ParseGranularity accepts "year", "month" or "week". The empty string maps
// to Year.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "", Year:
		return Year, nil
	case Month:
		return Month, nil
	case Week:
		return Week, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
}

// Period is a rating period, identified by its UTC start.
type Period struct {
	Start       time.Time
	Granularity Granularity
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time, gr Granularity) Period {
	t = t.UTC()
	var start time.Time
	switch gr {
	case Month:
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Week:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // days since Monday
		start = day.AddDate(0, 0, -offset)
	default:
		gr = Year
		start = time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return Period{Start: start, Granularity: gr}
}

// Next returns the following period.
func (p Period) Next() Period {
	switch p.Granularity {
	case Month:
		return Period{Start: p.Start.AddDate(0, 1, 0), Granularity: p.Granularity}
	case Week:
		return Period{Start: p.Start.AddDate(0, 0, 7), Granularity: p.Granularity}
	default:
		return Period{Start: p.Start.AddDate(1, 0, 0), Granularity: p.Granularity}
	}
}

// Year is the calendar year the period starts in.
func (p Period) Year() int { return p.Start.Year() }

// String labels the period: 2023, 2023-05 or 2023-W18.
func (p Period) String() string {
	switch p.Granularity {
	case Month:
		return p.Start.Format("2006-01")
	case Week:
		y, w := p.Start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	default:
		return p.Start.Format("2006")
	}
}
