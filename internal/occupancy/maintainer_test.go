package occupancy

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel/internal/model"
	"hostel/internal/store"
)

func newRooms(t *testing.T, s store.Store, numbers ...string) []model.Room {
	t.Helper()
	var out []model.Room
	for _, n := range numbers {
		r, err := s.CreateRoom(context.Background(), model.RoomInput{RoomNumber: n})
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func occupied(t *testing.T, s store.Store, id string) int {
	t.Helper()
	r, err := s.GetRoom(context.Background(), id)
	require.NoError(t, err)
	return r.OccupiedCount
}

func TestCounterMatchesTallyAfterRandomMutations(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	m := New(s, nil)
	rooms := newRooms(t, s, "A", "B", "C")
	choices := []string{"", rooms[0].ID, rooms[1].ID, rooms[2].ID}

	rng := rand.New(rand.NewSource(42))
	var ids []string
	for i := 0; i < 500; i++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(ids) == 0:
			st, err := s.CreateStudent(ctx, model.StudentInput{Name: "s", RoomID: choices[rng.Intn(len(choices))]})
			require.NoError(t, err)
			require.NoError(t, m.StudentCreated(ctx, st))
			ids = append(ids, st.ID)
		case op == 1:
			id := ids[rng.Intn(len(ids))]
			before, err := s.GetStudent(ctx, id)
			require.NoError(t, err)
			to := choices[rng.Intn(len(choices))]
			_, err = s.UpdateStudent(ctx, id, model.StudentPatch{RoomID: &to})
			require.NoError(t, err)
			require.NoError(t, m.StudentMoved(ctx, before.RoomID, to))
		default:
			i := rng.Intn(len(ids))
			st, err := s.GetStudent(ctx, ids[i])
			require.NoError(t, err)
			require.NoError(t, s.DeleteStudent(ctx, st.ID))
			require.NoError(t, m.StudentDeleted(ctx, st))
			ids = append(ids[:i], ids[i+1:]...)
		}
	}

	students, err := s.ListStudents(ctx, store.StudentFilter{})
	require.NoError(t, err)
	tally := Tally(students)
	for _, r := range rooms {
		assert.Equal(t, tally[r.ID], occupied(t, s, r.ID), "room %s", r.RoomNumber)
	}
}

func TestReleaseFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	m := New(s, nil)
	room := newRooms(t, s, "A")[0]

	require.NoError(t, m.StudentDeleted(ctx, model.Student{RoomID: room.ID}))
	assert.Equal(t, 0, occupied(t, s, room.ID))
}

func TestMoveIsNoOpWhenRoomUnchanged(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	m := New(s, nil)
	room := newRooms(t, s, "A")[0]

	require.NoError(t, m.StudentCreated(ctx, model.Student{RoomID: room.ID}))
	require.NoError(t, m.StudentMoved(ctx, room.ID, room.ID))
	assert.Equal(t, 1, occupied(t, s, room.ID))
}

func TestMoveOutOfDeletedRoom(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	m := New(s, nil)
	rooms := newRooms(t, s, "A", "B")
	require.NoError(t, s.DeleteRoom(ctx, rooms[0].ID))

	require.NoError(t, m.StudentMoved(ctx, rooms[0].ID, rooms[1].ID))
	assert.Equal(t, 1, occupied(t, s, rooms[1].ID))
}

func TestMoveIntoMissingRoomFails(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	m := New(s, nil)

	err := m.StudentMoved(ctx, "", "missing")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestRecountRepairsDrift(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	m := New(s, nil)
	rooms := newRooms(t, s, "A", "B")

	// Students written without going through the maintainer.
	for i := 0; i < 3; i++ {
		_, err := s.CreateStudent(ctx, model.StudentInput{Name: "x", RoomID: rooms[0].ID})
		require.NoError(t, err)
	}
	stale := 5
	_, err := s.UpdateRoom(ctx, rooms[1].ID, model.RoomPatch{OccupiedCount: &stale})
	require.NoError(t, err)

	fixed, err := m.Recount(ctx, s)
	require.NoError(t, err)
	require.Len(t, fixed, 2)
	assert.Equal(t, 3, occupied(t, s, rooms[0].ID))
	assert.Equal(t, 0, occupied(t, s, rooms[1].ID))

	fixed, err = m.Recount(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, fixed)
}
