package attendance

import (
	"hostel/internal/model"
)

// StatusAll is the status filter value matching every student, marked or not.
const StatusAll = "all"

// Filter narrows a reconciled day view.
type Filter struct {
	// Search is matched case-insensitively against name or department.
	Search string
	// Status is StatusAll (or empty) or one of the model statuses. A concrete
	// status excludes students without a record for the day.
	Status string
}

// Validate rejects unknown status filters.
func (f Filter) Validate() error {
	if f.Status == "" || f.Status == StatusAll || model.Status(f.Status).Valid() {
		return nil
	}
	return model.Invalid("status", "must be all, present, absent or permission")
}

func (f Filter) match(v model.StudentWithAttendance) bool {
	if !v.Student.Matches(f.Search) {
		return false
	}
	if f.Status == "" || f.Status == StatusAll {
		return true
	}
	return v.Attendance != nil && string(v.Attendance.Status) == f.Status
}

// Reconcile joins the roster with one day's records. The result follows the
// roster order; students without a record get a nil Attendance.
func Reconcile(roster []model.Student, records []model.Attendance) []model.StudentWithAttendance {
	byStudent := latestByStudent(records)
	out := make([]model.StudentWithAttendance, 0, len(roster))
	for _, s := range roster {
		v := model.StudentWithAttendance{Student: s}
		if rec, ok := byStudent[s.ID]; ok {
			rec := rec
			v.Attendance = &rec
		}
		out = append(out, v)
	}
	return out
}

// Apply keeps the views matching f, preserving order.
func Apply(views []model.StudentWithAttendance, f Filter) []model.StudentWithAttendance {
	out := make([]model.StudentWithAttendance, 0, len(views))
	for _, v := range views {
		if f.match(v) {
			out = append(out, v)
		}
	}
	return out
}

// latestByStudent indexes records by student. The store keeps one record per
// student and day; should it ever hold more, the most recently marked wins,
// with the greater id breaking ties.
func latestByStudent(records []model.Attendance) map[string]model.Attendance {
	idx := make(map[string]model.Attendance, len(records))
	for _, r := range records {
		cur, ok := idx[r.StudentID]
		if !ok || newer(r, cur) {
			idx[r.StudentID] = r
		}
	}
	return idx
}

func newer(a, b model.Attendance) bool {
	if !a.MarkedAt.Equal(b.MarkedAt) {
		return a.MarkedAt.After(b.MarkedAt)
	}
	return a.ID > b.ID
}
