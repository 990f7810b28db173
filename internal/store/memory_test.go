package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel/internal/model"
)

func TestMemoryRoomLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	capacity := 3
	b, err := m.CreateRoom(ctx, model.RoomInput{RoomNumber: "B-2", Capacity: &capacity})
	require.NoError(t, err)
	a, err := m.CreateRoom(ctx, model.RoomInput{RoomNumber: "A-1", Floor: "Ground"})
	require.NoError(t, err)

	rooms, err := m.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, a.ID, rooms[0].ID, "rooms are ordered by room number")

	_, err = m.CreateRoom(ctx, model.RoomInput{RoomNumber: "a-1"})
	assert.True(t, errors.Is(err, model.ErrValidation), "room numbers are unique")

	count := 2
	got, err := m.UpdateRoom(ctx, b.ID, model.RoomPatch{OccupiedCount: &count})
	require.NoError(t, err)
	assert.Equal(t, 2, got.OccupiedCount)
	assert.Equal(t, 3, *got.Capacity)

	require.NoError(t, m.DeleteRoom(ctx, b.ID))
	_, err = m.GetRoom(ctx, b.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.True(t, errors.Is(m.DeleteRoom(ctx, b.ID), model.ErrNotFound))
}

func TestMemoryStudentsFilterByRoom(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.CreateStudent(ctx, model.StudentInput{Name: "Zara", RoomID: "r1"})
	require.NoError(t, err)
	_, err = m.CreateStudent(ctx, model.StudentInput{Name: "Amal", RoomID: "r1"})
	require.NoError(t, err)
	_, err = m.CreateStudent(ctx, model.StudentInput{Name: "Bina"})
	require.NoError(t, err)

	all, err := m.ListStudents(ctx, StudentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Amal", "Bina", "Zara"}, []string{all[0].Name, all[1].Name, all[2].Name})

	inRoom, err := m.ListStudents(ctx, StudentFilter{RoomID: "r1"})
	require.NoError(t, err)
	assert.Len(t, inRoom, 2)

	empty := ""
	updated, err := m.UpdateStudent(ctx, inRoom[0].ID, model.StudentPatch{RoomID: &empty})
	require.NoError(t, err)
	assert.Equal(t, "", updated.RoomID)
}

func TestMemoryAttendanceUniquePerStudentAndDate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first, err := m.CreateAttendance(ctx, model.Attendance{StudentID: "s1", Date: "2024-05-01", Status: model.StatusAbsent, MarkedBy: "u1"})
	require.NoError(t, err)
	second, err := m.CreateAttendance(ctx, model.Attendance{StudentID: "s1", Date: "2024-05-01", Status: model.StatusPresent, MarkedBy: "u2"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	recs, err := m.ListAttendance(ctx, AttendanceFilter{StudentID: "s1", Date: "2024-05-01"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, model.StatusPresent, recs[0].Status)
	assert.Equal(t, "u2", recs[0].MarkedBy)
}

func TestMemoryAttendanceRange(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, d := range []string{"2024-11-30", "2024-12-01", "2024-12-31", "2025-01-01"} {
		_, err := m.CreateAttendance(ctx, model.Attendance{StudentID: "s1", Date: d, Status: model.StatusPresent})
		require.NoError(t, err)
	}
	_, err := m.CreateAttendance(ctx, model.Attendance{StudentID: "s2", Date: "2024-12-05", Status: model.StatusPresent})
	require.NoError(t, err)

	recs, err := m.ListAttendance(ctx, AttendanceFilter{StudentID: "s1", From: "2024-12-01", To: "2025-01-01"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2024-12-01", recs[0].Date)
	assert.Equal(t, "2024-12-31", recs[1].Date)
}

func TestMemoryDeleteStudentDropsAttendance(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	s, err := m.CreateStudent(ctx, model.StudentInput{Name: "Amal"})
	require.NoError(t, err)
	_, err = m.CreateAttendance(ctx, model.Attendance{StudentID: s.ID, Date: "2024-05-01", Status: model.StatusPresent})
	require.NoError(t, err)

	require.NoError(t, m.DeleteStudent(ctx, s.ID))
	recs, err := m.ListAttendance(ctx, AttendanceFilter{StudentID: s.ID})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMemoryUpdateAttendance(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	rec, err := m.CreateAttendance(ctx, model.Attendance{StudentID: "s1", Date: "2024-05-01", Status: model.StatusPermission, Reason: "fever"})
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	got, err := m.UpdateAttendance(ctx, rec.ID, model.AttendancePatch{Status: model.StatusPresent, MarkedBy: "u9", MarkedAt: at})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "", got.Reason)
	assert.Equal(t, at, got.MarkedAt)

	_, err = m.UpdateAttendance(ctx, "missing", model.AttendancePatch{Status: model.StatusPresent})
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
