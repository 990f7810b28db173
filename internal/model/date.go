package model

import (
	"fmt"
	"time"
)

// Layouts of the calendar strings exchanged with clients and stores.
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// ParseDate validates an ISO calendar date and returns it in canonical form.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", Invalid("date", fmt.Sprintf("%q is not a YYYY-MM-DD date", s))
	}
	return t.Format(DateLayout), nil
}

// DateOf returns the calendar date of t in loc.
func DateOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// Month is a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Month{}, Invalid("month", fmt.Sprintf("%q is not a YYYY-MM month", s))
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month containing t in loc.
func MonthOf(t time.Time, loc *time.Location) Month {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) first() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// String formats the month as YYYY-MM.
func (m Month) String() string { return m.first().Format(MonthLayout) }

// Next returns the following month, rolling December over into January.
func (m Month) Next() Month {
	t := m.first().AddDate(0, 1, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

// Start is the first date of the month (inclusive bound).
func (m Month) Start() string { return m.first().Format(DateLayout) }

// End is the first date of the next month (exclusive bound).
func (m Month) End() string { return m.Next().Start() }

// Days is the number of calendar days in the month.
func (m Month) Days() int {
	return m.first().AddDate(0, 1, -1).Day()
}

// Dates lists every date of the month in order.
func (m Month) Dates() []string {
	n := m.Days()
	out := make([]string, 0, n)
	for d := 0; d < n; d++ {
		out = append(out, m.first().AddDate(0, 0, d).Format(DateLayout))
	}
	return out
}

// Contains reports whether the ISO date falls in [Start, End).
func (m Month) Contains(date string) bool {
	return date >= m.Start() && date < m.End()
}
