package jobs

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hostel/internal/attendance"
	"hostel/internal/cache"
	"hostel/internal/metrics"
	"hostel/internal/model"
	"hostel/internal/occupancy"
	"hostel/internal/queue"
	"hostel/internal/roster"
	"hostel/internal/store"
)

func TestWorkerRepairsOccupancy(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	room, err := st.CreateRoom(ctx, model.RoomInput{RoomNumber: "101"})
	require.NoError(t, err)
	_, err = st.CreateStudent(ctx, model.StudentInput{Name: "Anita", Department: "Physics", RoomID: room.ID})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	w := &Worker{
		Recounter: roster.NewService(st, occupancy.New(st, m)),
		Summaries: attendance.NewService(st),
		Metrics:   m,
		Log:       zap.NewNop(),
	}

	q := queue.NewInMemory(4)
	require.NoError(t, q.Publish(ctx, queue.Message{Type: queue.TypeRecount, Body: []byte("test")}))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- w.Run(runCtx, q) }()

	require.Eventually(t, func() bool {
		r, err := st.GetRoom(ctx, room.ID)
		return err == nil && r.OccupiedCount == 1
	}, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	expected := `
# HELP hostel_jobs_processed_total Background jobs by type and result.
# TYPE hostel_jobs_processed_total counter
hostel_jobs_processed_total{result="ok",type="occupancy.recount"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "hostel_jobs_processed_total"))
}

func TestWorkerWarmsDailyCounts(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	s, err := st.CreateStudent(ctx, model.StudentInput{Name: "Anita", Department: "Physics"})
	require.NoError(t, err)
	_, err = st.CreateAttendance(ctx, model.Attendance{StudentID: s.ID, Date: "2024-05-01", Status: model.StatusPresent, MarkedBy: "staff"})
	require.NoError(t, err)

	c := cache.NewMemory(time.Minute)
	w := &Worker{Summaries: attendance.NewService(st, attendance.WithCache(c)), Log: zap.NewNop()}

	require.NoError(t, w.Handle(ctx, queue.Message{Type: queue.TypeMarked, Body: []byte(s.ID + " 2024-05-01")}))

	var counts attendance.Counts
	hit, err := c.Get(ctx, "attendance:counts:2024-05-01:0", &counts)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, counts.Present)

	assert.Error(t, w.Handle(ctx, queue.Message{Type: queue.TypeMarked, Body: []byte("no-date")}))
	assert.NoError(t, w.Handle(ctx, queue.Message{Type: "checkin"}))
}
