package memcache

import (
	"fmt"
	"sync"
	"testing"
)

func TestCache_PutGet(t *testing.T) {
	t.Parallel()

	c := New[string](3)
	c.Put("a", "1")

	v, ok := c.Get("a")
	if !ok || v != "1" {
		t.Errorf("Get(a) = %q, %v, want 1, true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should report not found")
	}
}

func TestCache_EvictsOldestInserted(t *testing.T) {
	t.Parallel()

	c := New[int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	// Access "a" so an LRU cache would evict "b" instead. FIFO eviction
	// must still drop "a" as the oldest-inserted entry.
	c.Get("a")
	c.Put("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Error("oldest-inserted entry a should be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b should survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCache_RePutKeepsPosition(t *testing.T) {
	t.Parallel()

	c := New[int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 10) // update, no eviction
	c.Put("c", 3)  // evicts a (still oldest-inserted)

	if _, ok := c.Get("a"); ok {
		t.Error("a should be evicted despite the update")
	}
	if v, _ := c.Get("b"); v != 2 {
		t.Errorf("b = %d, want 2", v)
	}
}

func TestCache_ZeroCapacityDisables(t *testing.T) {
	t.Parallel()

	c := New[int](0)
	c.Put("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Error("zero-capacity cache should store nothing")
	}
}

func TestCache_Clear(t *testing.T) {
	t.Parallel()

	c := New[int](4)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
	c.Put("c", 3)
	if _, ok := c.Get("c"); !ok {
		t.Error("cache should be usable after Clear")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := New[int](16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%20)
				c.Put(key, n)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 16 {
		t.Errorf("Len() = %d, exceeds capacity 16", c.Len())
	}
}
