package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counts struct {
	Present int `json:"present"`
}

func TestMemoryRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", counts{Present: 4}))
	var got counts
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, got.Present)

	now = now.Add(2 * time.Minute)
	ok, err = c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	require.NoError(t, c.Set(ctx, "a", 1))
	require.NoError(t, c.Set(ctx, "b", 2))
	require.NoError(t, c.Delete(ctx, "a"))

	var v int
	ok, _ := c.Get(ctx, "a", &v)
	assert.False(t, ok)
	ok, _ = c.Get(ctx, "b", &v)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestMemoryIncrOutlivesTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	n, err := c.Incr(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = c.Incr(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	now = now.Add(time.Hour)
	var got int64
	ok, err := c.Get(ctx, "v", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), got)

	require.NoError(t, c.Set(ctx, "s", "text"))
	_, err = c.Incr(ctx, "s")
	assert.Error(t, err)
}

func TestNewSelectsBackend(t *testing.T) {
	c, err := New("none", nil, "", time.Minute)
	require.NoError(t, err)
	assert.IsType(t, Nop{}, c)

	c, err = New("memory", nil, "", time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	_, err = New("redis", nil, "", time.Minute)
	assert.Error(t, err)
	_, err = New("memcached", nil, "", time.Minute)
	assert.Error(t, err)
}
