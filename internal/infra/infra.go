// Package infra provides shared infrastructure used by the market-data
// client: a TTL cache for response bodies and an outbound rate limiter.
package infra

import (
	"context"
	"sync"
	"time"
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// --- TTL cache ---

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a thread-safe in-memory cache where every entry carries its own
// time-to-live.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry[V]
	now     Clock
}

// NewCache creates an empty cache using the wall clock.
func NewCache[V any]() *Cache[V] {
	return NewCacheWithClock[V](time.Now)
}

// NewCacheWithClock creates an empty cache that reads time from now.
func NewCacheWithClock[V any](now Clock) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]cacheEntry[V]),
		now:     now,
	}
}

// Get returns the value for key if it is present and not yet expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expiresAt) {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set stores value under key for ttl. A non-positive ttl is ignored.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry[V]{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes expired entries and returns how many were dropped.
func (c *Cache[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, v := range c.entries {
		if !now.Before(v.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// RunJanitor calls Cleanup every interval until ctx is done.
func (c *Cache[V]) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup()
		}
	}
}

// --- Rate limiter ---

// RateLimiter is a token bucket that refills one token per interval up to
// burst tokens.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	burst      int
	interval   time.Duration
	lastRefill time.Time
	now        Clock
}

// PerMinute returns a limiter admitting n requests per minute, or nil when
// n <= 0. A nil *RateLimiter never blocks.
func PerMinute(n int) *RateLimiter {
	if n <= 0 {
		return nil
	}
	return NewRateLimiter(n, time.Minute/time.Duration(n))
}

// NewRateLimiter creates a full bucket of burst tokens refilled every interval.
func NewRateLimiter(burst int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     burst,
		burst:      burst,
		interval:   interval,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Allow takes a token if one is available without waiting.
func (rl *RateLimiter) Allow() bool {
	if rl == nil {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	for {
		if rl.Allow() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rl.pollInterval()):
		}
	}
}

func (rl *RateLimiter) pollInterval() time.Duration {
	if rl.interval < 100*time.Millisecond {
		return rl.interval
	}
	return 100 * time.Millisecond
}

// refill adds tokens based on elapsed time. Must be called with mu held.
func (rl *RateLimiter) refill() {
	elapsed := rl.now().Sub(rl.lastRefill)
	if elapsed < rl.interval {
		return
	}
	periods := int(elapsed / rl.interval)
	rl.tokens += periods
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}
	rl.lastRefill = rl.lastRefill.Add(time.Duration(periods) * rl.interval)
}
