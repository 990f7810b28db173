package store

import (
	"context"
	"fmt"

	"hostel/internal/model"
)

// StudentFilter narrows ListStudents. Zero value lists everyone.
type StudentFilter struct {
	RoomID string
}

// AttendanceFilter narrows ListAttendance. Date selects one exact day; From
// (inclusive) and To (exclusive) select a range. StudentID may be combined
// with either.
type AttendanceFilter struct {
	StudentID string
	Date      string
	From      string
	To        string
}

// Store is the record store backing rooms, students and attendance.
// Rooms are listed by room number, students by name. Missing records are
// reported as model.NotFoundError, backend faults as model.StoreError.
type Store interface {
	ListRooms(ctx context.Context) ([]model.Room, error)
	GetRoom(ctx context.Context, id string) (model.Room, error)
	CreateRoom(ctx context.Context, in model.RoomInput) (model.Room, error)
	UpdateRoom(ctx context.Context, id string, patch model.RoomPatch) (model.Room, error)
	DeleteRoom(ctx context.Context, id string) error

	ListStudents(ctx context.Context, f StudentFilter) ([]model.Student, error)
	GetStudent(ctx context.Context, id string) (model.Student, error)
	CreateStudent(ctx context.Context, in model.StudentInput) (model.Student, error)
	UpdateStudent(ctx context.Context, id string, patch model.StudentPatch) (model.Student, error)
	DeleteStudent(ctx context.Context, id string) error

	ListAttendance(ctx context.Context, f AttendanceFilter) ([]model.Attendance, error)
	// CreateAttendance inserts a record. A record that already exists for the
	// same student and date is overwritten in place and keeps its id.
	CreateAttendance(ctx context.Context, rec model.Attendance) (model.Attendance, error)
	UpdateAttendance(ctx context.Context, id string, patch model.AttendancePatch) (model.Attendance, error)

	Ping(ctx context.Context) error
	Close() error
}

// Open builds the store selected by backend.
func Open(backend, databaseURL string) (Store, error) {
	switch backend {
	case "memory":
		return NewMemory(), nil
	case "postgres", "":
		db, err := NewDB(databaseURL)
		if err != nil {
			return nil, err
		}
		if err := Migrate(context.Background(), db.Client); err != nil {
			_ = db.Close()
			return nil, err
		}
		return NewPostgres(db), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", backend)
}
