package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB opens a Postgres pool and verifies it with a bounded ping.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{Client: db}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id             UUID PRIMARY KEY,
	room_number    TEXT NOT NULL UNIQUE,
	floor          TEXT NOT NULL DEFAULT '',
	capacity       INTEGER CHECK (capacity >= 0),
	occupied_count INTEGER NOT NULL DEFAULT 0 CHECK (occupied_count >= 0),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS students (
	id            UUID PRIMARY KEY,
	room_id       UUID,
	name          TEXT NOT NULL,
	department    TEXT NOT NULL DEFAULT '',
	batch         TEXT NOT NULL DEFAULT '',
	father_name   TEXT NOT NULL DEFAULT '',
	mother_name   TEXT NOT NULL DEFAULT '',
	father_phone  TEXT NOT NULL DEFAULT '',
	mother_phone  TEXT NOT NULL DEFAULT '',
	student_phone TEXT NOT NULL DEFAULT '',
	photo         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_students_room ON students(room_id);

CREATE TABLE IF NOT EXISTS attendance (
	id         UUID PRIMARY KEY,
	student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
	date       DATE NOT NULL,
	status     TEXT NOT NULL CHECK (status IN ('present', 'absent', 'permission')),
	reason     TEXT NOT NULL DEFAULT '',
	marked_by  TEXT NOT NULL,
	marked_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (student_id, date)
);

CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date);
`

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
