package cache

import (
	"testing"
	"time"
)

func newTestLRU(maxSize int, ttl time.Duration) (*LRUCache[string], *time.Time) {
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](maxSize, ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache returned a value")
	}
	c.Set("a", "1")
	c.Set("a", "2")
	if v, ok := c.Get("a"); !ok || v != "2" {
		t.Fatalf("Get(a) = %q, %v; want 2, true", v, ok)
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
}

func TestLRUCache_Unbounded(t *testing.T) {
	c, _ := newTestLRU(0, time.Minute)
	for _, k := range []string{"a", "b", "c", "d"} {
		c.Set(k, k)
	}
	if c.Size() != 4 {
		t.Fatalf("Size() = %d, want 4", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c, now := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	*now = now.Add(30 * time.Second)
	c.Set("b", "2")

	*now = now.Add(45 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b should still be fresh")
	}

	*now = now.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_DeleteAndPurge(t *testing.T) {
	c, _ := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	c.Delete("missing")
	if c.Size() != 1 {
		t.Fatalf("Size() after delete = %d, want 1", c.Size())
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("Size() after purge = %d, want 0", c.Size())
	}
	c.Set("c", "3")
	if _, ok := c.Get("c"); !ok {
		t.Fatal("cache unusable after purge")
	}
}

func TestManager(t *testing.T) {
	c, now := newTestLRU(10, time.Minute)
	c.Set("a", "1")
	*now = now.Add(2 * time.Minute)

	m := NewManager()
	m.Register(c)
	if n := m.CleanAll(); n != 1 {
		t.Fatalf("CleanAll() = %d, want 1", n)
	}

	m.StartCleanup(time.Millisecond)
	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}
