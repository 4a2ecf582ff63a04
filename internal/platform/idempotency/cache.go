// Package idempotency replays the first successful result of a keyed operation
// for a bounded time, so client retries do not repeat side effects.
package idempotency

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is used when no positive TTL is configured.
const DefaultTTL = 10 * time.Minute

const keySeparator = "\x00"

type entry struct {
	value     any
	expiresAt time.Time
}

type outcome struct {
	value    any
	replayed bool
}

// Cache stores operation results by key. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	flights singleflight.Group
	ttl     time.Duration
	now     func() time.Time
}

// New returns a cache whose entries expire after ttl.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key joins the scope parts of an idempotent request. An empty client key yields "".
func Key(actorID, operation, clientKey string) string {
	clientKey = strings.TrimSpace(clientKey)
	if clientKey == "" {
		return ""
	}
	return scope(actorID, operation) + clientKey
}

func scope(actorID, operation string) string {
	return actorID + keySeparator + operation + keySeparator
}

// Do runs fn once per key and replays its successful result until the entry expires.
// Concurrent callers with the same key share the outcome of the running call. Failed
// calls are not stored, so the next retry runs fn again. A panic in fn leaves the key
// free for the next caller. An empty key always runs fn.
func (c *Cache) Do(ctx context.Context, key string, fn func() (any, error)) (value any, replayed bool, err error) {
	if key == "" {
		value, err = fn()
		return value, false, err
	}

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	if value, ok := c.lookup(key); ok {
		return value, true, nil
	}

	leader := false
	result, err, _ := c.flights.Do(key, func() (any, error) {
		leader = true
		// A flight for this key may have finished between lookup and Do.
		if value, ok := c.lookup(key); ok {
			return outcome{value: value, replayed: true}, nil
		}

		value, err := fn()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()

		return outcome{value: value}, nil
	})
	if err != nil {
		return nil, false, err
	}

	out := result.(outcome)
	return out.value, out.replayed || !leader, nil
}

// Forget drops every stored result of operation for actorID, so the next request
// runs again even when it reuses a client key.
func (c *Cache) Forget(actorID, operation string) {
	prefix := scope(actorID, operation)

	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) lookup(key string) (any, bool) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(now)
	stored, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return stored.value, true
}

// pruneLocked drops entries past their expiry. Caller holds c.mu.
func (c *Cache) pruneLocked(now time.Time) {
	for key, stored := range c.entries {
		if !now.Before(stored.expiresAt) {
			delete(c.entries, key)
		}
	}
}
