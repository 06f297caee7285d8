package cache

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window limiter keyed by an arbitrary string.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	buckets *ttlcache.Cache[string, *bucket]
	now     func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	c := ttlcache.New(
		ttlcache.WithTTL[string, *bucket](window),
		ttlcache.WithDisableTouchOnHit[string, *bucket](),
	)
	go c.Start()
	return &RateLimiter{window: window, limit: limit, buckets: c, now: time.Now}
}

// Allow records a hit for key. When the window is exhausted it returns false
// and the time until the window resets.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	item := l.buckets.Get(key)
	if item == nil || !item.Value().resetAt.After(now) {
		l.buckets.Set(key, &bucket{count: 1, resetAt: now.Add(l.window)}, l.window)
		return true, 0
	}

	b := item.Value()
	if b.count >= l.limit {
		return false, b.resetAt.Sub(now)
	}
	b.count++
	return true, 0
}

func (l *RateLimiter) Stop() {
	l.buckets.Stop()
}
