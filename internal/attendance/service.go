package attendance

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"hostel/internal/cache"
	"hostel/internal/metrics"
	"hostel/internal/model"
	"hostel/internal/queue"
	"hostel/internal/store"
)

// MarkInput is a request to mark one student on one day.
type MarkInput struct {
	StudentID string
	Date      string
	Status    model.Status
	Reason    string
	MarkedBy  string
}

// Service marks attendance and builds the day, dashboard and month views.
type Service struct {
	store   store.Store
	cache   cache.Cache
	pub     queue.Publisher
	metrics *metrics.Metrics
	log     *zap.Logger
	loc     *time.Location
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithCache(c cache.Cache) Option { return func(s *Service) { s.cache = c } }

func WithPublisher(p queue.Publisher) Option { return func(s *Service) { s.pub = p } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

func WithLocation(l *time.Location) Option { return func(s *Service) { s.loc = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService creates a service backed by a record store.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		cache: cache.Nop{},
		log:   zap.NewNop(),
		loc:   time.UTC,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Today is the current calendar date in the service location.
func (s *Service) Today() string {
	return model.DateOf(s.now(), s.loc)
}

// CurrentMonth is the month containing Today.
func (s *Service) CurrentMonth() model.Month {
	return model.MonthOf(s.now(), s.loc)
}

func (in MarkInput) validate() (MarkInput, error) {
	date, err := model.ParseDate(in.Date)
	if err != nil {
		return in, err
	}
	in.Date = date
	if in.StudentID == "" {
		return in, model.Invalid("student_id", "is required")
	}
	if !in.Status.Valid() {
		return in, model.Invalid("status", "must be present, absent or permission")
	}
	if in.MarkedBy == "" {
		return in, model.Invalid("marked_by", "is required")
	}
	in.Reason = strings.TrimSpace(in.Reason)
	if in.Status == model.StatusPermission {
		if in.Reason == "" {
			return in, model.Invalid("reason", "is required for permission")
		}
	} else {
		in.Reason = ""
	}
	return in, nil
}

// Mark records the status of a student on a date. An existing record for the
// pair is updated in place; otherwise a new one is created. The reason is
// kept only for permission.
func (s *Service) Mark(ctx context.Context, in MarkInput) (model.Attendance, error) {
	in, err := in.validate()
	if err != nil {
		return model.Attendance{}, err
	}
	if _, err := s.store.GetStudent(ctx, in.StudentID); err != nil {
		return model.Attendance{}, err
	}

	existing, err := s.store.ListAttendance(ctx, store.AttendanceFilter{StudentID: in.StudentID, Date: in.Date})
	if err != nil {
		return model.Attendance{}, err
	}

	now := s.now()
	var (
		rec     model.Attendance
		outcome string
	)
	if cur, ok := latestByStudent(existing)[in.StudentID]; ok {
		outcome = "updated"
		rec, err = s.store.UpdateAttendance(ctx, cur.ID, model.AttendancePatch{
			Status:   in.Status,
			Reason:   in.Reason,
			MarkedBy: in.MarkedBy,
			MarkedAt: now,
		})
	} else {
		outcome = "created"
		rec, err = s.store.CreateAttendance(ctx, model.Attendance{
			StudentID: in.StudentID,
			Date:      in.Date,
			Status:    in.Status,
			Reason:    in.Reason,
			MarkedBy:  in.MarkedBy,
			MarkedAt:  now,
		})
	}
	if err != nil {
		return model.Attendance{}, err
	}
	s.metrics.ObserveMark(string(rec.Status), outcome)

	if _, err := s.cache.Incr(ctx, versionKey(rec.Date)); err != nil {
		s.log.Warn("cache invalidation failed", zap.String("date", rec.Date), zap.Error(err))
	}
	if s.pub != nil {
		msg := queue.Message{Type: queue.TypeMarked, Body: []byte(rec.StudentID + " " + rec.Date)}
		if err := s.pub.Publish(ctx, msg); err != nil {
			s.log.Warn("publish mark failed", zap.String("attendance_id", rec.ID), zap.Error(err))
		}
	}
	return rec, nil
}

// Day returns the roster joined with the records of date, filtered by f.
// The roster is ordered by student name.
func (s *Service) Day(ctx context.Context, date string, f Filter) ([]model.StudentWithAttendance, error) {
	date, err := model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	roster, err := s.store.ListStudents(ctx, store.StudentFilter{})
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListAttendance(ctx, store.AttendanceFilter{Date: date})
	if err != nil {
		return nil, err
	}
	return Apply(Reconcile(roster, records), f), nil
}

// DailySummary counts the statuses marked on date against the roster size.
// Per-date counts are served from the cache when present. Cached counts are
// keyed by the date's version, which Mark bumps after every write, so counts
// read before a mark can never be served after it.
func (s *Service) DailySummary(ctx context.Context, date string) (DailySummary, error) {
	date, err := model.ParseDate(date)
	if err != nil {
		return DailySummary{}, err
	}
	students, err := s.store.ListStudents(ctx, store.StudentFilter{})
	if err != nil {
		return DailySummary{}, err
	}

	var version int64
	cacheable := true
	if _, err := s.cache.Get(ctx, versionKey(date), &version); err != nil {
		s.log.Warn("cache version read failed", zap.String("date", date), zap.Error(err))
		cacheable = false
	}
	key := countsKey(date, version)

	var c Counts
	hit := false
	if cacheable {
		if hit, err = s.cache.Get(ctx, key, &c); err != nil {
			s.log.Warn("cache read failed", zap.String("date", date), zap.Error(err))
			hit = false
		}
	}
	if !hit {
		records, err := s.store.ListAttendance(ctx, store.AttendanceFilter{Date: date})
		if err != nil {
			return DailySummary{}, err
		}
		latest := latestByStudent(records)
		kept := make([]model.Attendance, 0, len(latest))
		for _, r := range latest {
			kept = append(kept, r)
		}
		c = Count(kept)
		if cacheable {
			if err := s.cache.Set(ctx, key, c); err != nil {
				s.log.Warn("cache write failed", zap.String("date", date), zap.Error(err))
			}
		}
	}
	return Daily(date, c, len(students)), nil
}

// StudentMonth returns a student's records in m, ordered by date, and their
// monthly summary.
func (s *Service) StudentMonth(ctx context.Context, studentID string, m model.Month) ([]model.Attendance, MonthlySummary, error) {
	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return nil, MonthlySummary{}, err
	}
	records, err := s.store.ListAttendance(ctx, store.AttendanceFilter{
		StudentID: studentID,
		From:      m.Start(),
		To:        m.End(),
	})
	if err != nil {
		return nil, MonthlySummary{}, err
	}
	if records == nil {
		records = []model.Attendance{}
	}
	return records, Monthly(m, records), nil
}

func countsKey(date string, version int64) string {
	return "attendance:counts:" + date + ":" + strconv.FormatInt(version, 10)
}

func versionKey(date string) string {
	return "attendance:version:" + date
}
