package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthBoundsRollOverDecember(t *testing.T) {
	m, err := ParseMonth("2024-12")
	require.NoError(t, err)

	assert.Equal(t, "2024-12-01", m.Start())
	assert.Equal(t, "2025-01-01", m.End())
	assert.Equal(t, 31, m.Days())
	assert.True(t, m.Contains("2024-12-31"))
	assert.False(t, m.Contains("2025-01-01"))
	assert.False(t, m.Contains("2024-11-30"))
	assert.Equal(t, Month{Year: 2025, Month: time.January}, m.Next())
}

func TestMonthDays(t *testing.T) {
	cases := map[string]int{
		"2024-02": 29,
		"2023-02": 28,
		"2024-04": 30,
		"2024-01": 31,
	}
	for in, want := range cases {
		m, err := ParseMonth(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, m.Days(), in)
		assert.Len(t, m.Dates(), want, in)
		assert.Equal(t, in, m.String())
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	_, err := ParseDate("2024-13-01")
	assert.True(t, errors.Is(err, ErrValidation))

	got, err := ParseDate("2024-03-09")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09", got)
}

func TestDateOfUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	ts := time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-10", DateOf(ts, loc))
	assert.Equal(t, "2024-03-09", DateOf(ts, nil))
}

func TestTypedErrors(t *testing.T) {
	assert.True(t, errors.Is(NotFound("room", "r1"), ErrNotFound))
	assert.True(t, errors.Is(Invalid("reason", "required"), ErrValidation))

	cause := errors.New("connection reset")
	err := WrapStore("list rooms", cause)
	assert.True(t, errors.Is(err, ErrStore))
	assert.True(t, errors.Is(err, cause))

	nf := NotFound("student", "s1")
	assert.Same(t, nf, WrapStore("get student", nf))
	assert.Nil(t, WrapStore("noop", nil))
}

func TestMatches(t *testing.T) {
	s := Student{Name: "Anita Rao", Department: "Physics"}
	assert.True(t, s.Matches(""))
	assert.True(t, s.Matches("anita"))
	assert.True(t, s.Matches("PHYS"))
	assert.False(t, s.Matches("chem"))

	r := Room{RoomNumber: "A-101", Floor: "Ground"}
	assert.True(t, r.Matches("a-1"))
	assert.True(t, r.Matches("ground"))
	assert.False(t, r.Matches("first"))
}
