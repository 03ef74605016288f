package folkmap

// Value is the fixed-width payload a Map holds inline in its slot words.
// Two bytes is what makes the single-word CAS protocol possible: the biased
// key offset (16 bits), the cached hash (32 bits) and the value (16 bits)
// pack exactly into one atomically addressable uint64.
type Value interface {
	~int16 | ~uint16
}

// Map is a lock-less concurrent hash map with a capacity fixed at
// construction. Keys are written once into an append-only store; each table
// slot packs {key offset, cached hash, value} into a single atomic word, so
// every mutation is one compare-and-swap and no reader can ever observe a
// torn entry. There are no locks anywhere: contention only costs CAS
// retries, never parking.
//
// All methods are safe for concurrent use without external synchronization.
// Len is approximate while writers are active. Deleting leaves a tombstone
// in the slot; tombstones are never reclaimed, so lookup cost grows with
// delete churn.
type Map[K comparable, V Value] struct {
	table[K, V]
}

// New returns a map that can hold `capacity` entries. Capacity is bounded by
// the packed word's 16-bit key-offset field; anything above MaxCapacity
// fails with ErrInvalidCapacity.
func New[K comparable, V Value](capacity int, opts ...Option[K, V]) (*Map[K, V], error) {
	var m Map[K, V]
	if err := m.init(capacity, opts...); err != nil {
		return nil, err
	}

	return &m, nil
}

// Get returns the value stored for key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	return m.get(key)
}

// Set inserts key or updates its value. Returns ErrTableFull when no slot
// can be claimed within the probe bound; the map never grows, so retrying
// the same insert cannot succeed.
func (m *Map[K, V]) Set(key K, value V) error {
	return m.set(key, value)
}

// Delete removes key, leaving a tombstone in its slot. Reports whether this
// call removed it.
func (m *Map[K, V]) Delete(key K) bool {
	return m.delete(key)
}

// CompareAndSwap replaces the value for key with new only if the current
// value equals old. Reports whether the swap happened.
func (m *Map[K, V]) CompareAndSwap(key K, old, new V) bool {
	return m.compareAndSwap(key, old, new)
}

// Contains reports whether key is in the map. As expensive as Get.
func (m *Map[K, V]) Contains(key K) bool {
	_, ok := m.get(key)
	return ok
}

// Len returns the number of live entries. Approximate under concurrent
// mutation.
func (m *Map[K, V]) Len() int {
	return m.len()
}

// Capacity returns the construction-time capacity.
func (m *Map[K, V]) Capacity() int {
	return m.capacity
}

// Stats returns a point-in-time snapshot of table occupancy.
func (m *Map[K, V]) Stats() Stats {
	return m.stats()
}
