package model

import (
	"strings"
	"time"
)

// Role is the actor role carried in access tokens.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// Status is the attendance status of a student on one day.
type Status string

const (
	StatusPresent    Status = "present"
	StatusAbsent     Status = "absent"
	StatusPermission Status = "permission"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPresent, StatusAbsent, StatusPermission}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusPermission:
		return true
	}
	return false
}

// Room is a hostel room. OccupiedCount is derived from student assignments.
type Room struct {
	ID            string    `json:"id"`
	RoomNumber    string    `json:"room_number"`
	Floor         string    `json:"floor,omitempty"`
	Capacity      *int      `json:"capacity,omitempty"`
	OccupiedCount int       `json:"occupied_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Matches reports whether term is a case-insensitive substring of the room
// number or floor. An empty term matches every room.
func (r Room) Matches(term string) bool {
	return containsFold(term, r.RoomNumber, r.Floor)
}

// RoomInput holds the fields accepted when creating a room.
type RoomInput struct {
	RoomNumber string `json:"room_number" validate:"required"`
	Floor      string `json:"floor"`
	Capacity   *int   `json:"capacity" validate:"omitempty,gte=0"`
}

// RoomPatch is a partial room update; nil fields are left unchanged.
type RoomPatch struct {
	RoomNumber    *string `json:"room_number" validate:"omitempty,min=1"`
	Floor         *string `json:"floor"`
	Capacity      *int    `json:"capacity" validate:"omitempty,gte=0"`
	OccupiedCount *int    `json:"-"`
}

// Student is a hostel resident. RoomID is empty when unassigned.
type Student struct {
	ID           string    `json:"id"`
	RoomID       string    `json:"room_id,omitempty"`
	Name         string    `json:"name"`
	Department   string    `json:"department"`
	Batch        string    `json:"batch"`
	FatherName   string    `json:"father_name"`
	MotherName   string    `json:"mother_name"`
	FatherPhone  string    `json:"father_phone"`
	MotherPhone  string    `json:"mother_phone"`
	StudentPhone string    `json:"student_phone"`
	Photo        string    `json:"photo,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Matches reports whether term is a case-insensitive substring of the
// student's name or department. An empty term matches every student.
func (s Student) Matches(term string) bool {
	return containsFold(term, s.Name, s.Department)
}

// StudentInput holds the fields accepted when creating a student.
type StudentInput struct {
	RoomID       string `json:"room_id"`
	Name         string `json:"name" validate:"required"`
	Department   string `json:"department" validate:"required"`
	Batch        string `json:"batch"`
	FatherName   string `json:"father_name"`
	MotherName   string `json:"mother_name"`
	FatherPhone  string `json:"father_phone"`
	MotherPhone  string `json:"mother_phone"`
	StudentPhone string `json:"student_phone"`
	Photo        string `json:"photo"`
}

// StudentPatch is a partial student update. A non-nil RoomID pointing at an
// empty string unassigns the student.
type StudentPatch struct {
	RoomID       *string `json:"room_id"`
	Name         *string `json:"name" validate:"omitempty,min=1"`
	Department   *string `json:"department" validate:"omitempty,min=1"`
	Batch        *string `json:"batch"`
	FatherName   *string `json:"father_name"`
	MotherName   *string `json:"mother_name"`
	FatherPhone  *string `json:"father_phone"`
	MotherPhone  *string `json:"mother_phone"`
	StudentPhone *string `json:"student_phone"`
	Photo        *string `json:"photo"`
}

// Attendance is the attendance record of one student on one date.
type Attendance struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Date      string    `json:"date"`
	Status    Status    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	MarkedBy  string    `json:"marked_by"`
	MarkedAt  time.Time `json:"marked_at"`
}

// AttendancePatch updates a record in place.
type AttendancePatch struct {
	Status   Status
	Reason   string
	MarkedBy string
	MarkedAt time.Time
}

// StudentWithAttendance joins a student with the record for one date.
// Attendance is nil when the student has not been marked yet.
type StudentWithAttendance struct {
	Student
	Attendance *Attendance `json:"attendance"`
}

func containsFold(term string, fields ...string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
