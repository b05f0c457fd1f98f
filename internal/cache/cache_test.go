// v2
// internal/cache/cache_test.go
package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type countingObserver struct{ hits, misses int }

func (o *countingObserver) CacheHit()  { o.hits++ }
func (o *countingObserver) CacheMiss() { o.misses++ }

func TestCacheExpiry(t *testing.T) {
	now := time.Unix(100, 0)
	obs := &countingObserver{}
	c := New[int](time.Second, obs).WithClock(func() time.Time { return now })
	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected hit, got %v %v", v, ok)
	}
	now = now.Add(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("entry should have expired")
	}
	if obs.hits != 1 || obs.misses != 1 {
		t.Fatalf("unexpected observer counts: %+v", obs)
	}
	if keys := c.Keys(); len(keys) != 0 {
		t.Fatalf("expired keys must be dropped, got %v", keys)
	}
}

func TestCacheZeroTTLKeepsEntries(t *testing.T) {
	now := time.Unix(0, 0)
	c := New[string](0, nil).WithClock(func() time.Time { return now })
	c.Set("b", "x")
	c.Set("a", "y")
	now = now.Add(24 * time.Hour)
	if keys := c.Keys(); len(keys) != 2 || keys[0] != "a" {
		t.Fatalf("expected sorted live keys, got %v", keys)
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("deleted key still present")
	}
}

func TestEvaluationKeyDistinguishesNil(t *testing.T) {
	zero := 0.0
	a := EvaluationKey("Pepper", &zero)
	b := EvaluationKey("pepper ", nil)
	if a == b {
		t.Fatalf("nil and zero must hash differently")
	}
	if a != EvaluationKey("pepper", &zero) {
		t.Fatalf("crop case must not change the key")
	}
}

func TestGetDropsExpiredEntry(t *testing.T) {
	now := time.Unix(100, 0)
	c := New[int](time.Second, nil).WithClock(func() time.Time { return now })
	c.Set("a", 1)
	now = now.Add(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("entry should have expired")
	}
	if n := c.Len(); n != 0 {
		t.Fatalf("expired entry still stored, len=%d", n)
	}
}

func TestLimitEvictsSoonestExpiry(t *testing.T) {
	now := time.Unix(0, 0)
	c := New[int](time.Minute, nil).WithClock(func() time.Time { return now }).WithLimit(3)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
		now = now.Add(time.Second)
	}
	c.Set("k0", 10) // overwrite does not evict
	if c.Len() != 3 {
		t.Fatalf("overwrite changed size: %d", c.Len())
	}
	c.Set("k3", 3)
	if c.Len() != 3 {
		t.Fatalf("limit not enforced: %d", c.Len())
	}
	if _, ok := c.Get("k1"); ok {
		t.Fatalf("k1 expired soonest and should have been evicted")
	}
	for _, k := range []string{"k0", "k2", "k3"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("%s should still be cached", k)
		}
	}
}

func TestLimitPrefersExpiredEntries(t *testing.T) {
	now := time.Unix(0, 0)
	c := New[int](time.Second, nil).WithClock(func() time.Time { return now }).WithLimit(2)
	c.Set("old", 1)
	now = now.Add(500 * time.Millisecond)
	c.Set("mid", 2)
	now = now.Add(700 * time.Millisecond)
	c.Set("new", 3)
	if keys := c.Keys(); len(keys) != 2 || keys[0] != "mid" || keys[1] != "new" {
		t.Fatalf("unexpected keys after eviction: %v", keys)
	}
}

func TestManyDistinctKeysStayBounded(t *testing.T) {
	c := New[int](time.Hour, nil).WithLimit(64)
	for i := 0; i < 10000; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}
	if c.Len() > 64 {
		t.Fatalf("cache grew past its limit: %d", c.Len())
	}
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (m *manualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func TestSweepAndRun(t *testing.T) {
	clk := &manualClock{now: time.Unix(0, 0)}
	c := New[int](time.Second, nil).WithClock(clk.Now)
	c.Set("a", 1)
	c.Set("b", 2)
	clk.Advance(2 * time.Second)
	if n := c.Sweep(); n != 2 {
		t.Fatalf("expected 2 swept, got %d", n)
	}

	c.Set("c", 3)
	clk.Advance(2 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, time.Millisecond) }()
	deadline := time.Now().Add(time.Second)
	for c.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sweeper never removed the expired entry")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}
