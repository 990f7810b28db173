package attendance

import (
	"math"

	"hostel/internal/model"
)

// Counts tallies records per status.
type Counts struct {
	Present    int `json:"present"`
	Absent     int `json:"absent"`
	Permission int `json:"permission"`
}

// Total is the number of counted records.
func (c Counts) Total() int { return c.Present + c.Absent + c.Permission }

// Count tallies records by status. Unknown statuses are ignored.
func Count(records []model.Attendance) Counts {
	var c Counts
	for _, r := range records {
		switch r.Status {
		case model.StatusPresent:
			c.Present++
		case model.StatusAbsent:
			c.Absent++
		case model.StatusPermission:
			c.Permission++
		}
	}
	return c
}

// Percent returns round(part/whole*100), or 0 when whole is not positive.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// DailySummary is the dashboard view of one day.
type DailySummary struct {
	Date string `json:"date"`
	Counts
	TotalStudents int `json:"total_students"`
	Unmarked      int `json:"unmarked"`
	PresentRate   int `json:"present_rate"`
}

// Daily summarises one day's counts against the roster size.
func Daily(date string, c Counts, totalStudents int) DailySummary {
	unmarked := totalStudents - c.Total()
	if unmarked < 0 {
		unmarked = 0
	}
	return DailySummary{
		Date:          date,
		Counts:        c,
		TotalStudents: totalStudents,
		Unmarked:      unmarked,
		PresentRate:   Percent(c.Present, totalStudents),
	}
}

// MonthlySummary is the per-student view of one month.
type MonthlySummary struct {
	Month string `json:"month"`
	Counts
	TotalDays int `json:"total_days"`
	// Rate is present days over every day of the month, so unmarked days
	// count against it.
	Rate int `json:"rate"`
	// Days maps each marked date to its status.
	Days map[string]model.Status `json:"days"`
}

// Monthly summarises a student's records. Records outside m are skipped.
func Monthly(m model.Month, records []model.Attendance) MonthlySummary {
	in := make([]model.Attendance, 0, len(records))
	for _, r := range records {
		if m.Contains(r.Date) {
			in = append(in, r)
		}
	}
	latest := latestByDate(in)
	days := make(map[string]model.Status, len(latest))
	kept := make([]model.Attendance, 0, len(latest))
	for _, r := range latest {
		days[r.Date] = r.Status
		kept = append(kept, r)
	}
	c := Count(kept)
	return MonthlySummary{
		Month:     m.String(),
		Counts:    c,
		TotalDays: m.Days(),
		Rate:      Percent(c.Present, m.Days()),
		Days:      days,
	}
}

func latestByDate(records []model.Attendance) map[string]model.Attendance {
	idx := make(map[string]model.Attendance, len(records))
	for _, r := range records {
		cur, ok := idx[r.Date]
		if !ok || newer(r, cur) {
			idx[r.Date] = r
		}
	}
	return idx
}
