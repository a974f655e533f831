package streak

import (
	"sync"
	"sync/atomic"
)

// DayCache memoizes a single value for one day. A lookup with any other
// key misses, so the entry goes stale on its own when the day rolls over.
type DayCache[V any] struct {
	mu    sync.RWMutex
	key   Date
	value V
	ok    bool
	gen   uint64
}

func (c *DayCache[V]) Get(key Date) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.ok || c.key != key {
		var zero V
		return zero, false
	}
	return c.value, true
}

func (c *DayCache[V]) Set(key Date, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = key
	c.value = value
	c.ok = true
}

// Generation changes on every Invalidate. Read it before computing a value
// and pass it to SetIfCurrent.
func (c *DayCache[V]) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// SetIfCurrent stores value only if no Invalidate happened since gen was
// read, so a value computed from data that has since changed is dropped.
func (c *DayCache[V]) SetIfCurrent(key Date, value V, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.key = key
	c.value = value
	c.ok = true
	return true
}

func (c *DayCache[V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	c.value = zero
	c.ok = false
	c.gen++
}

// Epoch tags asynchronous loads so that only the most recently issued one
// may apply its result.
type Epoch struct {
	n atomic.Uint64
}

// Begin issues a new token, superseding all earlier ones.
func (e *Epoch) Begin() uint64 {
	return e.n.Add(1)
}

func (e *Epoch) Current(token uint64) bool {
	return e.n.Load() == token
}
