package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b was least recently used and should be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %v, %v", v, ok)
	}
	if s := c.Stats(); s.Evictions != 1 || s.Size != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestLRUCacheExpires(t *testing.T) {
	clk := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clk.now)

	c.Set("monthly", "report")
	clk.t = clk.t.Add(30 * time.Second)
	if _, ok := c.Get("monthly"); !ok {
		t.Fatal("entry should still be fresh")
	}

	c.Set("annual", "report")
	clk.t = clk.t.Add(45 * time.Second)
	if _, ok := c.Get("monthly"); ok {
		t.Error("monthly should have expired")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Errorf("annual is still fresh, cleaned %d", n)
	}

	clk.t = clk.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 || c.Size() != 0 {
		t.Errorf("cleaned %d, size %d", n, c.Size())
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestLRUCachePurge(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")

	if n := c.Purge(); n != 1 {
		t.Errorf("purged %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("size = %d", c.Size())
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Error("cache should be usable after purge")
	}
}

func TestManagerSweep(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Second).WithClock(clk.now)
	c.Set("a", 1)
	c.Set("b", 2)

	var reported int
	m := NewManager(func(n int) { reported += n })
	m.Register(c)

	clk.t = clk.t.Add(2 * time.Second)
	if n := m.Sweep(); n != 2 || reported != 2 {
		t.Errorf("swept %d, reported %d", n, reported)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
