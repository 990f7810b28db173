// Package occupancy keeps each room's occupied count in step with the
// students assigned to it.
//
// The counter is maintained incrementally at write time: every student
// create, delete or reassignment adjusts the affected rooms by one. Reads never
// count students. The adjustment is a get-then-update through the record
// store, so two concurrent reassignments touching the same room can lose an
// update, and a failure between the student write and the adjustment leaves
// the counter stale. Recount is the repair path for both cases.
package occupancy

import (
	"context"
	"errors"

	"hostel/internal/metrics"
	"hostel/internal/model"
	"hostel/internal/store"
)

// Rooms is the part of the record store the maintainer writes to.
type Rooms interface {
	GetRoom(ctx context.Context, id string) (model.Room, error)
	UpdateRoom(ctx context.Context, id string, patch model.RoomPatch) (model.Room, error)
}

// Maintainer applies occupancy adjustments for student mutations.
type Maintainer struct {
	rooms   Rooms
	metrics *metrics.Metrics
}

// New creates a maintainer. m may be nil.
func New(rooms Rooms, m *metrics.Metrics) *Maintainer {
	return &Maintainer{rooms: rooms, metrics: m}
}

// StudentCreated increments the room the new student was assigned to.
func (m *Maintainer) StudentCreated(ctx context.Context, s model.Student) error {
	if s.RoomID == "" {
		return nil
	}
	return m.adjust(ctx, s.RoomID, 1)
}

// StudentDeleted decrements the room the deleted student occupied.
func (m *Maintainer) StudentDeleted(ctx context.Context, s model.Student) error {
	if s.RoomID == "" {
		return nil
	}
	return m.release(ctx, s.RoomID)
}

// StudentMoved moves one occupant from room `from` to room `to`. Either may
// be empty (unassigned). Both sides are attempted even if one fails.
func (m *Maintainer) StudentMoved(ctx context.Context, from, to string) error {
	if from == to {
		return nil
	}
	var errs []error
	if from != "" {
		errs = append(errs, m.release(ctx, from))
	}
	if to != "" {
		errs = append(errs, m.adjust(ctx, to, 1))
	}
	return errors.Join(errs...)
}

// release decrements a room. A room that no longer exists (the student was
// orphaned by a room deletion) has nothing to release.
func (m *Maintainer) release(ctx context.Context, roomID string) error {
	err := m.adjust(ctx, roomID, -1)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	return err
}

func (m *Maintainer) adjust(ctx context.Context, roomID string, delta int) (err error) {
	defer func() { m.metrics.ObserveOccupancy(delta, err) }()

	room, err := m.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	next := room.OccupiedCount + delta
	if next < 0 {
		next = 0
	}
	if next == room.OccupiedCount {
		return nil
	}
	_, err = m.rooms.UpdateRoom(ctx, roomID, model.RoomPatch{OccupiedCount: &next})
	return err
}

// Tally counts students per assigned room by full scan.
func Tally(students []model.Student) map[string]int {
	counts := make(map[string]int)
	for _, s := range students {
		if s.RoomID != "" {
			counts[s.RoomID]++
		}
	}
	return counts
}

// Correction describes a room whose counter was repaired.
type Correction struct {
	RoomID     string `json:"room_id"`
	RoomNumber string `json:"room_number"`
	Was        int    `json:"was"`
	Now        int    `json:"now"`
}

// Recount compares every room's counter with a full tally of the roster and
// rewrites the counters that drifted.
func (m *Maintainer) Recount(ctx context.Context, s store.Store) ([]Correction, error) {
	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	students, err := s.ListStudents(ctx, store.StudentFilter{})
	if err != nil {
		return nil, err
	}
	counts := Tally(students)

	var fixed []Correction
	for _, r := range rooms {
		want := counts[r.ID]
		if r.OccupiedCount == want {
			continue
		}
		if _, err := s.UpdateRoom(ctx, r.ID, model.RoomPatch{OccupiedCount: &want}); err != nil {
			return fixed, err
		}
		fixed = append(fixed, Correction{RoomID: r.ID, RoomNumber: r.RoomNumber, Was: r.OccupiedCount, Now: want})
	}
	m.metrics.AddCorrections(len(fixed))
	return fixed, nil
}
