// Package ratelimit bounds how often a key may perform an action.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter reports whether key may perform one more action now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisWindow is a fixed-window counter shared by every process using the same
// redis. Counters live under "<prefix>:<key>".
type RedisWindow struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewRedisWindow(client *redis.Client, prefix string, limit int, window time.Duration) *RedisWindow {
	return &RedisWindow{client: client, prefix: strings.TrimSuffix(prefix, ":"), limit: int64(limit), window: window}
}

func (w *RedisWindow) Allow(ctx context.Context, key string) (bool, error) {
	k := w.prefix + ":" + key
	n, err := w.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", k, err)
	}
	if n == 1 {
		if err := w.client.Expire(ctx, k, w.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expiry %s: %w", k, err)
		}
	}
	return n <= w.limit, nil
}

// minIdle is the shortest time a bucket is kept after its last use.
const minIdle = time.Minute

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// Local keeps one token bucket per key in memory. A bucket unused for long
// enough to refill completely is dropped, so the map only holds recent keys.
type Local struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewLocal(limit rate.Limit, burst int) *Local {
	idle := minIdle
	if limit > 0 && limit != rate.Inf {
		if refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second)).Round(time.Second); refill > idle {
			idle = refill
		}
	}
	return &Local{buckets: make(map[string]*bucket), limit: limit, burst: burst, idle: idle, now: time.Now}
}

// PerWindow builds a Local limiter allowing n actions per window with a burst of n.
func PerWindow(n int, window time.Duration) *Local {
	return NewLocal(rate.Every(window/time.Duration(n)), n)
}

func (l *Local) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1), nil
}

// Len reports how many keys currently hold a bucket.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Local) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	l.lastSweep = now
	for k, b := range l.buckets {
		if now.Sub(b.seen) >= l.idle {
			delete(l.buckets, k)
		}
	}
}

// Fallback consults primary and uses secondary when primary errors.
type Fallback struct {
	Primary   Limiter
	Secondary Limiter
}

func (f Fallback) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := f.Primary.Allow(ctx, key)
	if err == nil {
		return ok, nil
	}
	return f.Secondary.Allow(ctx, key)
}
