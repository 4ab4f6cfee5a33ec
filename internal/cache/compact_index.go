package cache

// DefaultCompactSoftMax is the soft upper bound at which a linear scan
// over the parallel slices remains cheap. It is a tunable crossover
// point: above it a hashed structure would pay off, below it the
// per-entry memory saving wins. Nothing enforces it.
const DefaultCompactSoftMax = 100

// CompactIndex is a key-value store backed by two parallel growable
// slices instead of a hash table. Lookups scan linearly, which at small
// cardinalities (tens of entries per tenant) is not a measurable latency
// concern and avoids per-bucket allocation overhead.
//
// Like LRUCache, it is mutated from a single logical writer.
type CompactIndex[K comparable, V any] struct {
	keys   []K
	values []V
}

// NewCompactIndex creates an empty index.
func NewCompactIndex[K comparable, V any]() *CompactIndex[K, V] {
	return &CompactIndex[K, V]{}
}

func (ix *CompactIndex[K, V]) indexOf(key K) int {
	for i, k := range ix.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// Get returns the value stored for key.
func (ix *CompactIndex[K, V]) Get(key K) (V, bool) {
	if i := ix.indexOf(key); i >= 0 {
		return ix.values[i], true
	}
	var zero V
	return zero, false
}

// Put inserts or replaces the value for key.
func (ix *CompactIndex[K, V]) Put(key K, value V) {
	if i := ix.indexOf(key); i >= 0 {
		ix.values[i] = value
		return
	}
	ix.keys = append(ix.keys, key)
	ix.values = append(ix.values, value)
}

// Remove deletes key if present. The last entry is swapped into the
// hole, so insertion order is not preserved; lookups are unaffected.
func (ix *CompactIndex[K, V]) Remove(key K) {
	i := ix.indexOf(key)
	if i < 0 {
		return
	}
	last := len(ix.keys) - 1
	ix.keys[i] = ix.keys[last]
	ix.values[i] = ix.values[last]
	ix.keys = ix.keys[:last]
	ix.values = ix.values[:last]
}

// RemoveFunc deletes every entry whose key matches the predicate.
func (ix *CompactIndex[K, V]) RemoveFunc(match func(K) bool) {
	for i := 0; i < len(ix.keys); {
		if match(ix.keys[i]) {
			last := len(ix.keys) - 1
			ix.keys[i] = ix.keys[last]
			ix.values[i] = ix.values[last]
			ix.keys = ix.keys[:last]
			ix.values = ix.values[:last]
			continue
		}
		i++
	}
}

// Clear drops all entries.
func (ix *CompactIndex[K, V]) Clear() {
	ix.keys = ix.keys[:0]
	ix.values = ix.values[:0]
}

// Len returns the number of stored entries.
func (ix *CompactIndex[K, V]) Len() int {
	return len(ix.keys)
}
