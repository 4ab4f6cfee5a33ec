package cache

import (
	"container/list"
)

// LRUStats holds observability counters for an LRUCache.
type LRUStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Inserts   int64
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// LRUCache is a fixed-capacity, recency-ordered hot cache. Entries are
// evicted on capacity only, never by age. All operations are O(1).
//
// LRUCache is not safe for concurrent mutation; the coordinator owns it
// from a single logical writer.
type LRUCache[K comparable, V any] struct {
	capacity int
	order    *list.List // front = most recently used
	items    map[K]*list.Element
	stats    LRUStats
}

// NewLRU creates an LRU cache with the given capacity. Capacity below 1
// is treated as 1.
func NewLRU[K comparable, V any](capacity int) *LRUCache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUCache[K, V]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[K]*list.Element, capacity),
	}
}

// Get returns the value for key and promotes it to most-recently-used.
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		c.stats.Hits++
		return el.Value.(*lruEntry[K, V]).value, true
	}
	c.stats.Misses++
	var zero V
	return zero, false
}

// Put inserts or updates a value, promoting it to most-recently-used.
// When the cache is full the least-recently-used entry is evicted first.
func (c *LRUCache[K, V]) Put(key K, value V) {
	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry[K, V]).value = value
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry[K, V]).key)
			c.stats.Evictions++
		}
	}

	c.items[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value})
	c.stats.Inserts++
}

// Remove deletes a key if present.
func (c *LRUCache[K, V]) Remove(key K) {
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

// RemoveFunc deletes every entry whose key matches the predicate.
func (c *LRUCache[K, V]) RemoveFunc(match func(K) bool) {
	for key := range c.items {
		if match(key) {
			c.Remove(key)
		}
	}
}

// Clear drops all entries. Counters are preserved.
func (c *LRUCache[K, V]) Clear() {
	c.order.Init()
	c.items = make(map[K]*list.Element, c.capacity)
}

// Len returns the current number of entries.
func (c *LRUCache[K, V]) Len() int {
	return c.order.Len()
}

// Stats returns a copy of the hit/miss/eviction/insert counters.
func (c *LRUCache[K, V]) Stats() LRUStats {
	return c.stats
}
