// Package ratelimit provides a keyed token bucket limiter used to throttle work per owner.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter manages per-key rate limiting.
// Each unique key gets its own independent limiter; idle keys are dropped after the TTL.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a keyed limiter allowing rps events per second with the given burst.
// A positive ttl starts a background sweep of idle keys; call Stop to end it.
func New(rps float64, burst int, ttl time.Duration) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
		done:     make(chan struct{}),
	}

	if ttl > 0 {
		go krl.cleanup()
	}

	return krl
}

// PerMinute is a convenience constructor for limits expressed as events per minute.
func PerMinute(perMinute float64, burst int, ttl time.Duration) *KeyedRateLimiter {
	return New(perMinute/60, burst, ttl)
}

// Allow reports whether an event for key may happen now. It never blocks.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	now := krl.now()
	return krl.getLimiter(key, now).AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.limiters)
}

func (krl *KeyedRateLimiter) getLimiter(key string, now time.Time) *rate.Limiter {
	if key == "" {
		key = "unknown"
	}

	krl.mu.Lock()
	defer krl.mu.Unlock()

	e, ok := krl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Stop shuts down the cleanup goroutine.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

func (krl *KeyedRateLimiter) cleanup() {
	ticker := time.NewTicker(krl.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-krl.done:
			return
		case <-ticker.C:
			krl.pruneIdle()
		}
	}
}

func (krl *KeyedRateLimiter) pruneIdle() {
	now := krl.now()

	krl.mu.Lock()
	defer krl.mu.Unlock()

	for key, e := range krl.limiters {
		if now.Sub(e.lastSeen) > krl.ttl {
			delete(krl.limiters, key)
		}
	}
}
