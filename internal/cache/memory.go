package cache

import (
	"container/list"
	"sync"
	"time"
)

// Memory is a TTL + LRU cache keyed by string. Expired entries are removed on
// access and are never returned; when MaxEntries or MaxWeight is exceeded the
// least recently used entries are evicted.
type Memory[V any] struct {
	mu    sync.Mutex
	ll    *list.List
	items map[string]*list.Element

	ttl        time.Duration
	maxEntries int
	maxWeight  int64
	clock      Clock
	observer   Observer

	weight int64
	stats  Stats
}

// NewMemory creates an in-memory cache
func NewMemory[V any](opts MemoryOptions) *Memory[V] {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	return &Memory[V]{
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		maxWeight:  opts.MaxWeight,
		clock:      opts.Clock,
		observer:   opts.Observer,
	}
}

// Get returns the live value for key and marks it most recently used
func (c *Memory[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		c.observer.OnMiss()
		return zero, false
	}

	entry := el.Value.(*Entry[V])
	if entry.IsExpired(c.clock.Now()) {
		c.removeElement(el)
		c.stats.Expirations++
		c.stats.Misses++
		c.observer.OnEvict(EvictExpired)
		c.observer.OnMiss()
		return zero, false
	}

	c.ll.MoveToFront(el)
	c.stats.Hits++
	c.observer.OnHit()
	return entry.Value, true
}

// Set stores value under key with the default TTL
func (c *Memory[V]) Set(key string, value V, weight int64) {
	c.SetWithTTL(key, value, weight, c.ttl)
}

// SetWithTTL stores value under key with an explicit TTL
func (c *Memory[V]) SetWithTTL(key string, value V, weight int64, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if weight < 0 {
		weight = 0
	}
	entry := &Entry[V]{
		Key:        key,
		Value:      value,
		InsertedAt: c.clock.Now(),
		TTL:        ttl,
		Weight:     weight,
	}

	if el, ok := c.items[key]; ok {
		old := el.Value.(*Entry[V])
		c.weight -= old.Weight
		el.Value = entry
		c.ll.MoveToFront(el)
	} else {
		c.items[key] = c.ll.PushFront(entry)
	}
	c.weight += weight

	c.enforceCapacity()
}

// enforceCapacity evicts from the LRU end until both bounds hold
func (c *Memory[V]) enforceCapacity() {
	for c.overCapacity() {
		back := c.ll.Back()
		if back == nil {
			return
		}
		c.removeElement(back)
		c.stats.Evictions++
		c.observer.OnEvict(EvictCapacity)
	}
}

func (c *Memory[V]) overCapacity() bool {
	if c.maxEntries > 0 && c.ll.Len() > c.maxEntries {
		return true
	}
	return c.maxWeight > 0 && c.weight > c.maxWeight
}

func (c *Memory[V]) removeElement(el *list.Element) {
	entry := el.Value.(*Entry[V])
	c.ll.Remove(el)
	delete(c.items, entry.Key)
	c.weight -= entry.Weight
}

// Delete removes key and reports whether it was present
func (c *Memory[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// Purge removes every entry
func (c *Memory[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.items = make(map[string]*list.Element)
	c.weight = 0
}

// Len returns the number of stored entries, including not yet collected expired ones
func (c *Memory[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats returns a snapshot of the cache counters
func (c *Memory[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Entries = c.ll.Len()
	s.Weight = c.weight
	return s
}
