// v3
// internal/cache/cache.go
package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Observer is notified of lookups, typically to feed counters.
type Observer interface {
	CacheHit()
	CacheMiss()
}

type entry[T any] struct {
	val T
	exp time.Time
}

// Cache is a keyed store whose entries expire after ttl. A zero ttl keeps
// entries forever.
type Cache[T any] struct {
	mu  sync.RWMutex
	m   map[string]entry[T]
	ttl time.Duration
	max int
	obs Observer
	now func() time.Time
}

func New[T any](ttl time.Duration, obs Observer) *Cache[T] {
	return &Cache[T]{m: make(map[string]entry[T]), ttl: ttl, obs: obs, now: time.Now}
}

// WithClock swaps the clock used for expiry.
func (c *Cache[T]) WithClock(now func() time.Time) *Cache[T] {
	c.now = now
	return c
}

// WithLimit caps the number of entries. When a new key would exceed the cap,
// expired entries are dropped first, then the entry closest to expiry.
// Zero means unbounded.
func (c *Cache[T]) WithLimit(n int) *Cache[T] {
	c.max = n
	return c
}

func (c *Cache[T]) expired(e entry[T], at time.Time) bool {
	return !e.exp.IsZero() && at.After(e.exp)
}

func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	at := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if ok && c.expired(e, at) {
		c.mu.Lock()
		if cur, still := c.m[key]; still && c.expired(cur, at) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		ok = false
	}
	if !ok {
		if c.obs != nil {
			c.obs.CacheMiss()
		}
		return zero, false
	}
	if c.obs != nil {
		c.obs.CacheHit()
	}
	return e.val, true
}

func (c *Cache[T]) Set(key string, v T) {
	e := entry[T]{val: v}
	if c.ttl > 0 {
		e.exp = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; !exists && c.max > 0 && len(c.m) >= c.max {
		c.evictLocked(c.now())
	}
	c.m[key] = e
}

// evictLocked makes room for one entry. Caller holds mu.
func (c *Cache[T]) evictLocked(at time.Time) {
	if c.sweepLocked(at) > 0 && len(c.m) < c.max {
		return
	}
	var (
		victim string
		soon   time.Time
		found  bool
	)
	for k, e := range c.m {
		if !found || evictsBefore(k, e.exp, victim, soon) {
			victim, soon, found = k, e.exp, true
		}
	}
	if found {
		delete(c.m, victim)
	}
}

// evictsBefore orders eviction candidates by expiry; entries without expiry
// go last and ties break on key.
func evictsBefore(k string, exp time.Time, other string, otherExp time.Time) bool {
	if exp.IsZero() != otherExp.IsZero() {
		return otherExp.IsZero()
	}
	if !exp.Equal(otherExp) {
		return exp.Before(otherExp)
	}
	return k < other
}

func (c *Cache[T]) sweepLocked(at time.Time) int {
	n := 0
	for k, e := range c.m {
		if c.expired(e, at) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

// Sweep drops every expired entry and reports how many were removed.
func (c *Cache[T]) Sweep() int {
	at := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(at)
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Run sweeps on every tick until ctx is done.
func (c *Cache[T]) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			c.Sweep()
		}
	}
}

func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

// Keys returns the live keys in sorted order and drops expired entries.
func (c *Cache[T]) Keys() []string {
	at := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.m))
	for k, e := range c.m {
		if c.expired(e, at) {
			delete(c.m, k)
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
