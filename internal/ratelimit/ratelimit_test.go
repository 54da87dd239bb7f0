package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestRedisWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	w := NewRedisWindow(client, "otp", 2, time.Hour)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := w.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.True(t, mr.Exists("otp:user:1"))
	ok, err := w.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = w.Allow(ctx, "user:2")
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	mr.FastForward(time.Hour + time.Second)
	ok, err = w.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, ok, "window resets after expiry")
}

func TestLocal(t *testing.T) {
	l := PerWindow(3, time.Hour)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, _ := l.Allow(ctx, "a")
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "a")
	assert.False(t, ok)
	ok, _ = l.Allow(ctx, "b")
	assert.True(t, ok)
}

func TestRedisWindowPrefixSeparator(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	w := NewRedisWindow(client, "interviewhub:", 1, time.Minute)
	_, err := w.Allow(context.Background(), "http:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("interviewhub:http:10.0.0.1"))
	assert.False(t, mr.Exists("interviewhub::http:10.0.0.1"))
}

func TestLocalEvictsIdleBuckets(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	l := PerWindow(2, time.Hour)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		ok, err := l.Allow(ctx, fmt.Sprintf("ip-%d", i))
		require.NoError(t, err)
		assert.True(t, ok)
	}
	for i := 0; i < 2; i++ {
		_, _ = l.Allow(ctx, "busy")
	}
	assert.Equal(t, 101, l.Len())

	// Still limited before a full refill, so the bucket must survive.
	now = now.Add(10 * time.Minute)
	ok, _ := l.Allow(ctx, "busy")
	assert.False(t, ok)
	assert.Equal(t, 101, l.Len())

	now = now.Add(time.Hour)
	ok, _ = l.Allow(ctx, "fresh")
	assert.True(t, ok)
	assert.Equal(t, 1, l.Len(), "every bucket idle for a full refill is dropped")
}

func TestLocalIdleFloor(t *testing.T) {
	l := NewLocal(rate.Limit(100), 10)
	assert.Equal(t, minIdle, l.idle)
	l = PerWindow(5, time.Hour)
	assert.Equal(t, time.Hour, l.idle)
}

type failing struct{}

func (failing) Allow(context.Context, string) (bool, error) { return false, errors.New("down") }

func TestFallback(t *testing.T) {
	f := Fallback{Primary: failing{}, Secondary: PerWindow(1, time.Hour)}
	ok, err := f.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
