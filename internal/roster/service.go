// Package roster manages rooms and students. Student mutations that change a
// room assignment are followed by an occupancy adjustment; when that
// adjustment fails the write stands and a recount job is queued instead.
package roster

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"hostel/internal/cloudinary"
	"hostel/internal/model"
	"hostel/internal/occupancy"
	"hostel/internal/queue"
	"hostel/internal/store"
)

// ErrPhotosDisabled is returned by UploadPhoto when no image host is configured.
var ErrPhotosDisabled = errors.New("photo storage not configured")

// PhotoUploader stores student photos and returns their public location.
type PhotoUploader interface {
	Upload(ctx context.Context, publicID, filename string, data []byte) (*cloudinary.UploadResult, error)
}

// Service is the admin-facing room and student API.
type Service struct {
	store    store.Store
	occ      *occupancy.Maintainer
	pub      queue.Publisher
	photos   PhotoUploader
	log      *zap.Logger
	validate *validator.Validate
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher enables recount jobs.
func WithPublisher(p queue.Publisher) Option { return func(s *Service) { s.pub = p } }

func WithPhotos(p PhotoUploader) Option { return func(s *Service) { s.photos = p } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// NewService creates the service. occ must maintain counters on the same store.
func NewService(st store.Store, occ *occupancy.Maintainer, opts ...Option) *Service {
	s := &Service{
		store:    st,
		occ:      occ,
		log:      zap.NewNop(),
		validate: newValidator(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ListRooms returns the rooms whose number or floor contains search.
func (s *Service) ListRooms(ctx context.Context, search string) ([]model.Room, error) {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	search = strings.TrimSpace(search)
	out := make([]model.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.Matches(search) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) GetRoom(ctx context.Context, id string) (model.Room, error) {
	return s.store.GetRoom(ctx, id)
}

// RoomStudents lists the occupants of a room, filtered by name or department.
func (s *Service) RoomStudents(ctx context.Context, roomID, search string) ([]model.Student, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.ListStudents(ctx, roomID, search)
}

func (s *Service) CreateRoom(ctx context.Context, in model.RoomInput) (model.Room, error) {
	in.RoomNumber = strings.TrimSpace(in.RoomNumber)
	in.Floor = strings.TrimSpace(in.Floor)
	if err := s.check(in); err != nil {
		return model.Room{}, err
	}
	return s.store.CreateRoom(ctx, in)
}

// UpdateRoom applies patch. The occupied count is owned by the occupancy
// maintainer and is never taken from callers.
func (s *Service) UpdateRoom(ctx context.Context, id string, patch model.RoomPatch) (model.Room, error) {
	patch.OccupiedCount = nil
	if patch.RoomNumber != nil {
		n := strings.TrimSpace(*patch.RoomNumber)
		if n == "" {
			return model.Room{}, model.Invalid("room_number", "must not be empty")
		}
		patch.RoomNumber = &n
	}
	if err := s.check(patch); err != nil {
		return model.Room{}, err
	}
	return s.store.UpdateRoom(ctx, id, patch)
}

// DeleteRoom removes a room. Students still assigned to it keep the dangling
// room id and count as unassigned for every derived view.
func (s *Service) DeleteRoom(ctx context.Context, id string) error {
	occupants, err := s.store.ListStudents(ctx, store.StudentFilter{RoomID: id})
	if err != nil {
		return err
	}
	if err := s.store.DeleteRoom(ctx, id); err != nil {
		return err
	}
	if len(occupants) > 0 {
		s.log.Info("room deleted with occupants", zap.String("room_id", id), zap.Int("students", len(occupants)))
	}
	return nil
}

// ListStudents returns students, optionally limited to one room, whose name
// or department contains search.
func (s *Service) ListStudents(ctx context.Context, roomID, search string) ([]model.Student, error) {
	students, err := s.store.ListStudents(ctx, store.StudentFilter{RoomID: roomID})
	if err != nil {
		return nil, err
	}
	search = strings.TrimSpace(search)
	out := make([]model.Student, 0, len(students))
	for _, st := range students {
		if st.Matches(search) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *Service) GetStudent(ctx context.Context, id string) (model.Student, error) {
	return s.store.GetStudent(ctx, id)
}

// CreateStudent adds a student and bumps the occupancy of their room.
func (s *Service) CreateStudent(ctx context.Context, in model.StudentInput) (model.Student, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Department = strings.TrimSpace(in.Department)
	in.RoomID = strings.TrimSpace(in.RoomID)
	if err := s.check(in); err != nil {
		return model.Student{}, err
	}
	if err := s.roomExists(ctx, in.RoomID); err != nil {
		return model.Student{}, err
	}
	st, err := s.store.CreateStudent(ctx, in)
	if err != nil {
		return model.Student{}, err
	}
	s.adjusted(ctx, "student created", st.ID, s.occ.StudentCreated(ctx, st))
	return st, nil
}

// UpdateStudent applies patch. A room change moves one occupant from the old
// room to the new one.
func (s *Service) UpdateStudent(ctx context.Context, id string, patch model.StudentPatch) (model.Student, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return model.Student{}, model.Invalid("name", "must not be empty")
	}
	if patch.Department != nil && strings.TrimSpace(*patch.Department) == "" {
		return model.Student{}, model.Invalid("department", "must not be empty")
	}
	if err := s.check(patch); err != nil {
		return model.Student{}, err
	}
	before, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return model.Student{}, err
	}
	if patch.RoomID != nil {
		to := strings.TrimSpace(*patch.RoomID)
		patch.RoomID = &to
		if to != before.RoomID {
			if err := s.roomExists(ctx, to); err != nil {
				return model.Student{}, err
			}
		}
	}
	after, err := s.store.UpdateStudent(ctx, id, patch)
	if err != nil {
		return model.Student{}, err
	}
	s.adjusted(ctx, "student moved", id, s.occ.StudentMoved(ctx, before.RoomID, after.RoomID))
	return after, nil
}

// DeleteStudent removes a student with their attendance history and releases
// their place in the room.
func (s *Service) DeleteStudent(ctx context.Context, id string) error {
	st, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteStudent(ctx, id); err != nil {
		return err
	}
	s.adjusted(ctx, "student deleted", id, s.occ.StudentDeleted(ctx, st))
	return nil
}

// UploadPhoto stores an image for the student and records its URL.
func (s *Service) UploadPhoto(ctx context.Context, id, filename string, data []byte) (model.Student, error) {
	if s.photos == nil {
		return model.Student{}, ErrPhotosDisabled
	}
	if len(data) == 0 {
		return model.Student{}, model.Invalid("file", "is empty")
	}
	if _, err := s.store.GetStudent(ctx, id); err != nil {
		return model.Student{}, err
	}
	res, err := s.photos.Upload(ctx, id, filename, data)
	if err != nil {
		return model.Student{}, err
	}
	url := res.SecureURL
	if url == "" {
		url = res.URL
	}
	return s.store.UpdateStudent(ctx, id, model.StudentPatch{Photo: &url})
}

// RequestRecount queues a full occupancy recount.
func (s *Service) RequestRecount(ctx context.Context, reason string) error {
	if s.pub == nil {
		return errors.New("recount queue not configured")
	}
	return s.pub.Publish(ctx, queue.Message{Type: queue.TypeRecount, Body: []byte(reason)})
}

// Recount rewrites drifted occupancy counters from a full scan.
func (s *Service) Recount(ctx context.Context) ([]occupancy.Correction, error) {
	fixed, err := s.occ.Recount(ctx, s.store)
	for _, c := range fixed {
		s.log.Info("occupancy corrected",
			zap.String("room_id", c.RoomID),
			zap.String("room_number", c.RoomNumber),
			zap.Int("was", c.Was),
			zap.Int("now", c.Now))
	}
	return fixed, err
}

// Totals is the size of the roster and the number of rooms.
type Totals struct {
	Students int `json:"total_students"`
	Rooms    int `json:"total_rooms"`
}

func (s *Service) Totals(ctx context.Context) (Totals, error) {
	students, err := s.store.ListStudents(ctx, store.StudentFilter{})
	if err != nil {
		return Totals{}, err
	}
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return Totals{}, err
	}
	return Totals{Students: len(students), Rooms: len(rooms)}, nil
}

func (s *Service) roomExists(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := s.store.GetRoom(ctx, id)
	return err
}

// adjusted handles the outcome of an occupancy adjustment. The student write
// already happened, so a failure only leaves the counter stale.
func (s *Service) adjusted(ctx context.Context, op, studentID string, err error) {
	if err == nil {
		return
	}
	s.log.Error("occupancy adjustment failed",
		zap.String("op", op),
		zap.String("student_id", studentID),
		zap.Error(err))
	if s.pub == nil {
		return
	}
	if perr := s.RequestRecount(ctx, op+" "+studentID); perr != nil {
		s.log.Error("recount request failed", zap.Error(perr))
	}
}
