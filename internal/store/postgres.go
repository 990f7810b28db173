package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"hostel/internal/model"
)

const (
	roomColumns       = `id, room_number, floor, capacity, occupied_count, created_at, updated_at`
	studentColumns    = `id, room_id, name, department, batch, father_name, mother_name, father_phone, mother_phone, student_phone, photo, created_at, updated_at`
	attendanceColumns = `id, student_id, date, status, reason, marked_by, marked_at`
)

// Postgres persists records with raw SQL over database/sql and pgx.
type Postgres struct {
	db *DB
}

// NewPostgres creates a store over an open pool. The schema must already
// exist (see Migrate).
func NewPostgres(db *DB) *Postgres {
	return &Postgres{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(row scanner) (model.Room, error) {
	var (
		r        model.Room
		capacity sql.NullInt64
	)
	if err := row.Scan(&r.ID, &r.RoomNumber, &r.Floor, &capacity, &r.OccupiedCount, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return model.Room{}, err
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		r.Capacity = &c
	}
	return r, nil
}

func scanStudent(row scanner) (model.Student, error) {
	var (
		s      model.Student
		roomID sql.NullString
	)
	if err := row.Scan(&s.ID, &roomID, &s.Name, &s.Department, &s.Batch, &s.FatherName, &s.MotherName,
		&s.FatherPhone, &s.MotherPhone, &s.StudentPhone, &s.Photo, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return model.Student{}, err
	}
	s.RoomID = roomID.String
	return s, nil
}

func scanAttendance(row scanner) (model.Attendance, error) {
	var (
		a    model.Attendance
		date time.Time
	)
	if err := row.Scan(&a.ID, &a.StudentID, &date, &a.Status, &a.Reason, &a.MarkedBy, &a.MarkedAt); err != nil {
		return model.Attendance{}, err
	}
	a.Date = date.Format(model.DateLayout)
	return a, nil
}

// ---- rooms ----

func (p *Postgres) ListRooms(ctx context.Context) ([]model.Room, error) {
	rows, err := p.db.Client.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY room_number, id`)
	if err != nil {
		return nil, model.WrapStore("list rooms", err)
	}
	defer rows.Close()
	var res []model.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, model.WrapStore("list rooms", err)
		}
		res = append(res, r)
	}
	return res, model.WrapStore("list rooms", rows.Err())
}

func (p *Postgres) GetRoom(ctx context.Context, id string) (model.Room, error) {
	if !validID(id) {
		return model.Room{}, model.NotFound("room", id)
	}
	row := p.db.Client.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
	r, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Room{}, model.NotFound("room", id)
	}
	return r, model.WrapStore("get room", err)
}

func (p *Postgres) CreateRoom(ctx context.Context, in model.RoomInput) (model.Room, error) {
	row := p.db.Client.QueryRowContext(ctx, `
		INSERT INTO rooms (id, room_number, floor, capacity)
		VALUES ($1, $2, $3, $4)
		RETURNING `+roomColumns,
		uuid.NewString(), in.RoomNumber, in.Floor, nullInt(in.Capacity))
	r, err := scanRoom(row)
	if err != nil {
		return model.Room{}, roomWriteErr("create room", in.RoomNumber, err)
	}
	return r, nil
}

func (p *Postgres) UpdateRoom(ctx context.Context, id string, patch model.RoomPatch) (model.Room, error) {
	if !validID(id) {
		return model.Room{}, model.NotFound("room", id)
	}
	u := newUpdate(id)
	if patch.RoomNumber != nil {
		u.set("room_number", *patch.RoomNumber)
	}
	if patch.Floor != nil {
		u.set("floor", *patch.Floor)
	}
	if patch.Capacity != nil {
		u.set("capacity", *patch.Capacity)
	}
	if patch.OccupiedCount != nil {
		u.set("occupied_count", *patch.OccupiedCount)
	}
	u.raw("updated_at = NOW()")

	row := p.db.Client.QueryRowContext(ctx, u.sql("rooms", roomColumns), u.args...)
	r, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Room{}, model.NotFound("room", id)
	}
	if err != nil {
		number := ""
		if patch.RoomNumber != nil {
			number = *patch.RoomNumber
		}
		return model.Room{}, roomWriteErr("update room", number, err)
	}
	return r, nil
}

// DeleteRoom removes the room. Students keep their dangling room id.
func (p *Postgres) DeleteRoom(ctx context.Context, id string) error {
	if !validID(id) {
		return model.NotFound("room", id)
	}
	res, err := p.db.Client.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return model.WrapStore("delete room", err)
	}
	return affected(res, "room", id)
}

// ---- students ----

func (p *Postgres) ListStudents(ctx context.Context, f StudentFilter) ([]model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students`
	args := []any{}
	if f.RoomID != "" {
		if !validID(f.RoomID) {
			return nil, nil
		}
		query += ` WHERE room_id = $1`
		args = append(args, f.RoomID)
	}
	query += ` ORDER BY name, id`

	rows, err := p.db.Client.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.WrapStore("list students", err)
	}
	defer rows.Close()
	var res []model.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, model.WrapStore("list students", err)
		}
		res = append(res, s)
	}
	return res, model.WrapStore("list students", rows.Err())
}

func (p *Postgres) GetStudent(ctx context.Context, id string) (model.Student, error) {
	if !validID(id) {
		return model.Student{}, model.NotFound("student", id)
	}
	row := p.db.Client.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Student{}, model.NotFound("student", id)
	}
	return s, model.WrapStore("get student", err)
}

func (p *Postgres) CreateStudent(ctx context.Context, in model.StudentInput) (model.Student, error) {
	if in.RoomID != "" && !validID(in.RoomID) {
		return model.Student{}, model.NotFound("room", in.RoomID)
	}
	row := p.db.Client.QueryRowContext(ctx, `
		INSERT INTO students (id, room_id, name, department, batch, father_name, mother_name,
			father_phone, mother_phone, student_phone, photo)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING `+studentColumns,
		uuid.NewString(), nullString(in.RoomID), in.Name, in.Department, in.Batch, in.FatherName, in.MotherName,
		in.FatherPhone, in.MotherPhone, in.StudentPhone, in.Photo)
	s, err := scanStudent(row)
	return s, model.WrapStore("create student", err)
}

func (p *Postgres) UpdateStudent(ctx context.Context, id string, patch model.StudentPatch) (model.Student, error) {
	if !validID(id) {
		return model.Student{}, model.NotFound("student", id)
	}
	u := newUpdate(id)
	if patch.RoomID != nil {
		if *patch.RoomID != "" && !validID(*patch.RoomID) {
			return model.Student{}, model.NotFound("room", *patch.RoomID)
		}
		u.set("room_id", nullString(*patch.RoomID))
	}
	fields := []struct {
		col string
		val *string
	}{
		{"name", patch.Name},
		{"department", patch.Department},
		{"batch", patch.Batch},
		{"father_name", patch.FatherName},
		{"mother_name", patch.MotherName},
		{"father_phone", patch.FatherPhone},
		{"mother_phone", patch.MotherPhone},
		{"student_phone", patch.StudentPhone},
		{"photo", patch.Photo},
	}
	for _, f := range fields {
		if f.val != nil {
			u.set(f.col, *f.val)
		}
	}
	u.raw("updated_at = NOW()")

	row := p.db.Client.QueryRowContext(ctx, u.sql("students", studentColumns), u.args...)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Student{}, model.NotFound("student", id)
	}
	return s, model.WrapStore("update student", err)
}

// DeleteStudent removes the student; attendance rows cascade.
func (p *Postgres) DeleteStudent(ctx context.Context, id string) error {
	if !validID(id) {
		return model.NotFound("student", id)
	}
	res, err := p.db.Client.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return model.WrapStore("delete student", err)
	}
	return affected(res, "student", id)
}

// ---- attendance ----

func (p *Postgres) ListAttendance(ctx context.Context, f AttendanceFilter) ([]model.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance`
	args := []any{}
	clauses := []string{}
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.StudentID != "" {
		if !validID(f.StudentID) {
			return nil, nil
		}
		add("student_id = $%d", f.StudentID)
	}
	if f.Date != "" {
		add("date = $%d", f.Date)
	}
	if f.From != "" {
		add("date >= $%d", f.From)
	}
	if f.To != "" {
		add("date < $%d", f.To)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY date, student_id"

	rows, err := p.db.Client.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.WrapStore("list attendance", err)
	}
	defer rows.Close()
	var res []model.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, model.WrapStore("list attendance", err)
		}
		res = append(res, a)
	}
	return res, model.WrapStore("list attendance", rows.Err())
}

func (p *Postgres) CreateAttendance(ctx context.Context, rec model.Attendance) (model.Attendance, error) {
	if !validID(rec.StudentID) {
		return model.Attendance{}, model.NotFound("student", rec.StudentID)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.MarkedAt.IsZero() {
		rec.MarkedAt = time.Now().UTC()
	}
	row := p.db.Client.QueryRowContext(ctx, `
		INSERT INTO attendance (id, student_id, date, status, reason, marked_by, marked_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (student_id, date) DO UPDATE SET
			status = EXCLUDED.status,
			reason = EXCLUDED.reason,
			marked_by = EXCLUDED.marked_by,
			marked_at = EXCLUDED.marked_at
		RETURNING `+attendanceColumns,
		rec.ID, rec.StudentID, rec.Date, string(rec.Status), rec.Reason, rec.MarkedBy, rec.MarkedAt)
	a, err := scanAttendance(row)
	if isPgCode(err, "23503") {
		return model.Attendance{}, model.NotFound("student", rec.StudentID)
	}
	return a, model.WrapStore("create attendance", err)
}

func (p *Postgres) UpdateAttendance(ctx context.Context, id string, patch model.AttendancePatch) (model.Attendance, error) {
	if !validID(id) {
		return model.Attendance{}, model.NotFound("attendance", id)
	}
	markedAt := patch.MarkedAt
	if markedAt.IsZero() {
		markedAt = time.Now().UTC()
	}
	row := p.db.Client.QueryRowContext(ctx, `
		UPDATE attendance
		SET status = $2, reason = $3, marked_by = $4, marked_at = $5
		WHERE id = $1
		RETURNING `+attendanceColumns,
		id, string(patch.Status), patch.Reason, patch.MarkedBy, markedAt)
	a, err := scanAttendance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Attendance{}, model.NotFound("attendance", id)
	}
	return a, model.WrapStore("update attendance", err)
}

// Ping verifies database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return model.WrapStore("ping", p.db.Client.PingContext(ctx))
}

// Close closes the pool.
func (p *Postgres) Close() error { return p.db.Close() }

// update builds "UPDATE t SET ... WHERE id = $1 RETURNING ..." statements.
type update struct {
	args []any
	sets []string
}

func newUpdate(id string) *update {
	return &update{args: []any{id}}
}

func (u *update) set(col string, v any) {
	u.args = append(u.args, v)
	u.sets = append(u.sets, fmt.Sprintf("%s = $%d", col, len(u.args)))
}

func (u *update) raw(expr string) {
	u.sets = append(u.sets, expr)
}

func (u *update) sql(table, returning string) string {
	return "UPDATE " + table + " SET " + strings.Join(u.sets, ", ") + " WHERE id = $1 RETURNING " + returning
}

func affected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return model.WrapStore("delete "+kind, err)
	}
	if n == 0 {
		return model.NotFound(kind, id)
	}
	return nil
}

func roomWriteErr(op, number string, err error) error {
	if isPgCode(err, "23505") {
		return model.Invalid("room_number", "room number "+number+" already exists")
	}
	if isPgCode(err, "23514") {
		return model.Invalid("capacity", "must not be negative")
	}
	return model.WrapStore(op, err)
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
