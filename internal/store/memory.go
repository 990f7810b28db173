package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hostel/internal/model"
)

// Memory is a mutex-guarded in-process store for development and tests.
// Each instance owns its own tables.
type Memory struct {
	mu         sync.RWMutex
	rooms      map[string]model.Room
	students   map[string]model.Student
	attendance map[string]model.Attendance
	now        func() time.Time
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		rooms:      make(map[string]model.Room),
		students:   make(map[string]model.Student),
		attendance: make(map[string]model.Attendance),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) ListRooms(ctx context.Context) ([]model.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoomNumber != out[j].RoomNumber {
			return out[i].RoomNumber < out[j].RoomNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetRoom(ctx context.Context, id string) (model.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return model.Room{}, model.NotFound("room", id)
	}
	return r, nil
}

func (m *Memory) CreateRoom(ctx context.Context, in model.RoomInput) (model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkRoomNumber(in.RoomNumber, ""); err != nil {
		return model.Room{}, err
	}
	now := m.now()
	r := model.Room{
		ID:         uuid.NewString(),
		RoomNumber: in.RoomNumber,
		Floor:      in.Floor,
		Capacity:   copyInt(in.Capacity),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.rooms[r.ID] = r
	return r, nil
}

func (m *Memory) UpdateRoom(ctx context.Context, id string, patch model.RoomPatch) (model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return model.Room{}, model.NotFound("room", id)
	}
	if patch.RoomNumber != nil {
		if err := m.checkRoomNumber(*patch.RoomNumber, id); err != nil {
			return model.Room{}, err
		}
		r.RoomNumber = *patch.RoomNumber
	}
	if patch.Floor != nil {
		r.Floor = *patch.Floor
	}
	if patch.Capacity != nil {
		r.Capacity = copyInt(patch.Capacity)
	}
	if patch.OccupiedCount != nil {
		r.OccupiedCount = *patch.OccupiedCount
	}
	r.UpdatedAt = m.now()
	m.rooms[id] = r
	return r, nil
}

func (m *Memory) DeleteRoom(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; !ok {
		return model.NotFound("room", id)
	}
	delete(m.rooms, id)
	return nil
}

func (m *Memory) checkRoomNumber(number, self string) error {
	for id, r := range m.rooms {
		if id != self && strings.EqualFold(r.RoomNumber, number) {
			return model.Invalid("room_number", "room number "+number+" already exists")
		}
	}
	return nil
}

func (m *Memory) ListStudents(ctx context.Context, f StudentFilter) ([]model.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Student, 0, len(m.students))
	for _, s := range m.students {
		if f.RoomID != "" && s.RoomID != f.RoomID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetStudent(ctx context.Context, id string) (model.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return model.Student{}, model.NotFound("student", id)
	}
	return s, nil
}

func (m *Memory) CreateStudent(ctx context.Context, in model.StudentInput) (model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	s := model.Student{
		ID:           uuid.NewString(),
		RoomID:       in.RoomID,
		Name:         in.Name,
		Department:   in.Department,
		Batch:        in.Batch,
		FatherName:   in.FatherName,
		MotherName:   in.MotherName,
		FatherPhone:  in.FatherPhone,
		MotherPhone:  in.MotherPhone,
		StudentPhone: in.StudentPhone,
		Photo:        in.Photo,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.students[s.ID] = s
	return s, nil
}

func (m *Memory) UpdateStudent(ctx context.Context, id string, patch model.StudentPatch) (model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return model.Student{}, model.NotFound("student", id)
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.RoomID, patch.RoomID)
	set(&s.Name, patch.Name)
	set(&s.Department, patch.Department)
	set(&s.Batch, patch.Batch)
	set(&s.FatherName, patch.FatherName)
	set(&s.MotherName, patch.MotherName)
	set(&s.FatherPhone, patch.FatherPhone)
	set(&s.MotherPhone, patch.MotherPhone)
	set(&s.StudentPhone, patch.StudentPhone)
	set(&s.Photo, patch.Photo)
	s.UpdatedAt = m.now()
	m.students[id] = s
	return s, nil
}

// DeleteStudent removes the student together with their attendance records.
func (m *Memory) DeleteStudent(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return model.NotFound("student", id)
	}
	delete(m.students, id)
	for aid, a := range m.attendance {
		if a.StudentID == id {
			delete(m.attendance, aid)
		}
	}
	return nil
}

func (m *Memory) ListAttendance(ctx context.Context, f AttendanceFilter) ([]model.Attendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Attendance, 0)
	for _, a := range m.attendance {
		if f.StudentID != "" && a.StudentID != f.StudentID {
			continue
		}
		if f.Date != "" && a.Date != f.Date {
			continue
		}
		if f.From != "" && a.Date < f.From {
			continue
		}
		if f.To != "" && a.Date >= f.To {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out, nil
}

func (m *Memory) CreateAttendance(ctx context.Context, rec model.Attendance) (model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.MarkedAt.IsZero() {
		rec.MarkedAt = m.now()
	}
	for id, a := range m.attendance {
		if a.StudentID == rec.StudentID && a.Date == rec.Date {
			rec.ID = id
			m.attendance[id] = rec
			return rec, nil
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.attendance[rec.ID] = rec
	return rec, nil
}

func (m *Memory) UpdateAttendance(ctx context.Context, id string, patch model.AttendancePatch) (model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attendance[id]
	if !ok {
		return model.Attendance{}, model.NotFound("attendance", id)
	}
	a.Status = patch.Status
	a.Reason = patch.Reason
	a.MarkedBy = patch.MarkedBy
	a.MarkedAt = patch.MarkedAt
	if a.MarkedAt.IsZero() {
		a.MarkedAt = m.now()
	}
	m.attendance[id] = a
	return a, nil
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
