package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hostel/internal/model"
)

func TestDailyWithoutRecords(t *testing.T) {
	d := Daily("2024-05-01", Count(nil), 12)
	assert.Equal(t, Counts{}, d.Counts)
	assert.Equal(t, 0, d.PresentRate)
	assert.Equal(t, 12, d.Unmarked)

	empty := Daily("2024-05-01", Counts{}, 0)
	assert.Equal(t, 0, empty.PresentRate, "empty roster does not divide by zero")
}

func TestDailyRounds(t *testing.T) {
	d := Daily("2024-05-01", Counts{Present: 2, Absent: 1}, 3)
	assert.Equal(t, 67, d.PresentRate)
	assert.Equal(t, 0, d.Unmarked)
}

func TestMonthly(t *testing.T) {
	m := model.Month{Year: 2024, Month: time.June}
	records := []model.Attendance{
		{ID: "1", Date: "2024-06-01", Status: model.StatusPresent},
		{ID: "2", Date: "2024-06-15", Status: model.StatusPresent},
	}
	s := Monthly(m, records)
	assert.Equal(t, "2024-06", s.Month)
	assert.Equal(t, 30, s.TotalDays)
	assert.Equal(t, 2, s.Present)
	assert.Equal(t, 0, s.Absent)
	assert.Equal(t, 7, s.Rate)
	assert.Equal(t, map[string]model.Status{
		"2024-06-01": model.StatusPresent,
		"2024-06-15": model.StatusPresent,
	}, s.Days)
}

func TestMonthlyCountsLatestRecordPerDay(t *testing.T) {
	m := model.Month{Year: 2024, Month: time.April}
	early := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	records := []model.Attendance{
		{ID: "a", Date: "2024-04-01", Status: model.StatusPresent, MarkedAt: early},
		{ID: "b", Date: "2024-04-01", Status: model.StatusAbsent, MarkedAt: early.Add(time.Hour)},
		{ID: "c", Date: "2024-04-02", Status: model.StatusPresent, MarkedAt: early},
	}
	s := Monthly(m, records)
	assert.Equal(t, 1, s.Present)
	assert.Equal(t, 1, s.Absent)
	assert.Equal(t, map[string]model.Status{
		"2024-04-01": model.StatusAbsent,
		"2024-04-02": model.StatusPresent,
	}, s.Days)
}

func TestMonthlyDecemberExcludesJanuary(t *testing.T) {
	m := model.Month{Year: 2024, Month: time.December}
	records := []model.Attendance{
		{ID: "1", Date: "2024-12-31", Status: model.StatusAbsent},
		{ID: "2", Date: "2025-01-01", Status: model.StatusPresent},
		{ID: "3", Date: "2024-11-30", Status: model.StatusPermission},
	}
	s := Monthly(m, records)
	assert.Equal(t, Counts{Absent: 1}, s.Counts)
	assert.Equal(t, 31, s.TotalDays)
	assert.Len(t, s.Days, 1)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(5, 0))
	assert.Equal(t, 0, Percent(0, 10))
	assert.Equal(t, 100, Percent(31, 31))
	assert.Equal(t, 50, Percent(1, 2))
	assert.Equal(t, 3, Percent(1, 31))
}
