// Package jobs processes queued background work: occupancy recounts and
// cache warming after attendance marks.
package jobs

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"hostel/internal/attendance"
	"hostel/internal/metrics"
	"hostel/internal/occupancy"
	"hostel/internal/queue"
)

// Recounter repairs occupancy counters.
type Recounter interface {
	Recount(ctx context.Context) ([]occupancy.Correction, error)
}

// Summaries rebuilds the cached daily counts.
type Summaries interface {
	DailySummary(ctx context.Context, date string) (attendance.DailySummary, error)
}

// Worker dispatches queue messages by type.
type Worker struct {
	Recounter Recounter
	Summaries Summaries
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

// Run consumes q until ctx ends. Failed jobs are logged and dropped.
func (w *Worker) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}
	w.Log.Info("worker started, waiting for messages")
	for msg := range messages {
		if err := w.Handle(ctx, msg); err != nil {
			w.Log.Error("job failed", zap.String("type", msg.Type), zap.ByteString("body", msg.Body), zap.Error(err))
		}
	}
	w.Log.Info("worker stopped")
	return nil
}

// Handle processes one message. Unknown types are ignored.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	var err error
	switch msg.Type {
	case queue.TypeRecount:
		err = w.recount(ctx, string(msg.Body))
	case queue.TypeMarked:
		err = w.marked(ctx, string(msg.Body))
	default:
		w.Log.Warn("unknown job type", zap.String("type", msg.Type))
		return nil
	}
	w.Metrics.ObserveJob(msg.Type, err)
	return err
}

func (w *Worker) recount(ctx context.Context, reason string) error {
	fixed, err := w.Recounter.Recount(ctx)
	if err != nil {
		return err
	}
	w.Log.Info("occupancy recount done", zap.String("reason", reason), zap.Int("corrected", len(fixed)))
	return nil
}

// marked refreshes the cached counts of the marked day so the next dashboard
// read is served from cache.
func (w *Worker) marked(ctx context.Context, body string) error {
	studentID, date, ok := strings.Cut(body, " ")
	if !ok {
		return fmt.Errorf("malformed mark body %q", body)
	}
	sum, err := w.Summaries.DailySummary(ctx, date)
	if err != nil {
		return err
	}
	w.Log.Debug("attendance marked",
		zap.String("student_id", studentID),
		zap.String("date", date),
		zap.Int("unmarked", sum.Unmarked))
	return nil
}
