package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDedup(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDedup()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := base
	d.now = func() time.Time { return now }

	ok, err := d.Acquire(ctx, "u|7|upcoming_reminder", 48*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Acquire(ctx, "u|7|upcoming_reminder", 48*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire within ttl must fail")

	ok, err = d.Acquire(ctx, "u|1|upcoming_reminder", 48*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "different key is independent")

	// After the TTL the key is acquirable again.
	now = base.Add(49 * time.Hour)
	ok, err = d.Acquire(ctx, "u|7|upcoming_reminder", 48*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisDedup(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewRedisDedup(client)

	ok, err := d.Acquire(ctx, "u|7|upcoming_reminder", 48*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Acquire(ctx, "u|7|upcoming_reminder", 48*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(49 * time.Hour)

	ok, err = d.Acquire(ctx, "u|7|upcoming_reminder", 48*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}
