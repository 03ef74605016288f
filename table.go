package folkmap

import (
	"math"
	"sync/atomic"
)

const (
	// MaxCapacity bounds the requested capacity so every key-store offset,
	// biased by offsetBias, still fits the packed word's 16 offset bits.
	MaxCapacity = math.MaxInt16

	// DefaultLoadFactor trades memory for probe length. Matches the
	// occupancy the allocation math was tuned for.
	DefaultLoadFactor = 0.6

	// probeFactor scales the expected probe length 1/(1-loadFactor) into
	// the displacement bound after which an insert declares the table full
	// for the key. Generous on purpose: reporting Full under legitimate
	// clustering is worse than a few extra loads.
	probeFactor = 64

	// noReservation marks a set call that has not reserved a key offset yet.
	noReservation = math.MaxUint32
)

type table[K comparable, V Value] struct {
	slots []atomic.Uint64
	keys  keyStore[K]

	mask       uint32
	maxProbes  int
	capacity   int
	loadFactor float64

	hashFunc HashFunc[K]

	// Write-side counters, kept off the read-mostly header fields' cache
	// line.
	_          [CacheLineSize]byte
	count      atomic.Int32
	tombstones atomic.Int32
}

type Option[K comparable, V Value] func(t *table[K, V])

// Override default hash function.
func WithHashFunc[K comparable, V Value](f HashFunc[K]) Option[K, V] {
	return func(t *table[K, V]) {
		t.hashFunc = f
	}
}

// Override default load factor. Must be in (0, 1).
func WithLoadFactor[K comparable, V Value](lf float64) Option[K, V] {
	return func(t *table[K, V]) {
		t.loadFactor = lf
	}
}

func (t *table[K, V]) init(capacity int, opts ...Option[K, V]) error {
	if capacity < 1 || capacity > MaxCapacity {
		return ErrInvalidCapacity
	}

	t.loadFactor = DefaultLoadFactor
	for _, opt := range opts {
		opt(t)
	}

	if t.loadFactor <= 0 || t.loadFactor >= 1 {
		return ErrInvalidLoadFactor
	}
	if t.hashFunc == nil {
		t.hashFunc = MakeDefaultHashFunc[K]()
	}

	// The table is allocated larger than the capacity so probe chains stay
	// short and lookups always meet an empty slot. Power-of-two size makes
	// the wraparound a mask. The bound is checked in float domain: past it
	// the uint32 conversion would not be defined.
	want := math.Ceil(float64(capacity) / t.loadFactor)
	if want > math.MaxUint16+1 {
		return ErrInvalidCapacity
	}

	tableSize := NextPowerOf2(uint32(want))

	t.capacity = capacity
	t.mask = tableSize - 1
	t.maxProbes = min(int(tableSize), probeFactor*int(math.Ceil(1/(1-t.loadFactor))))
	t.slots = make([]atomic.Uint64, tableSize)
	t.keys.init(capacity)

	return nil
}

// set implements insert-or-update. A slot is examined from a single-word
// snapshot; the key store is dereferenced only after the cached hash
// matches. A failed CAS never advances the cursor: the same slot is
// re-evaluated, because the winner may have inserted exactly the key this
// call carries, turning it into an update.
func (t *table[K, V]) set(key K, value V) error {
	var (
		hash     = t.hashFunc(key)
		idx      = probeStart(hash, t.mask)
		reserved = uint32(noReservation)
	)

	for probes := 0; probes < t.maxProbes; {
		slot := &t.slots[idx]
		entry := slot.Load()

		switch offset := entryOffset(entry); offset {
		case offsetEmpty:
			// The key cannot live past an empty slot, so from here on this
			// call is a pure insert. Updates of existing keys match before
			// ever reaching this arm, even in a full map.
			if int(t.count.Load()) >= t.capacity {
				t.rollback(reserved)
				return ErrTableFull
			}

			// Claim the slot. The key must be reserved (and published)
			// first, so any reader that sees the new entry can already
			// dereference its offset.
			if reserved == noReservation {
				off, err := t.keys.append(key)
				if err != nil {
					return err
				}
				reserved = uint32(off)
			}

			candidate := packEntry(uint16(reserved)+offsetBias, hash, uint16(value))
			if slot.CompareAndSwap(entryEmpty, candidate) {
				t.count.Add(1)
				return nil
			}

			continue

		case offsetTombstone:
			// Tombstones are dead forever; they neither terminate the
			// probe nor get reclaimed.

		default:
			if entryHash(entry) == hash {
				existing, ok := t.keys.get(offset - offsetBias)
				if ok && existing == key {
					if entryValue(entry) == uint16(value) {
						// Idempotent update, nothing to publish.
						t.rollback(reserved)
						return nil
					}

					candidate := packEntry(offset, hash, uint16(value))
					if slot.CompareAndSwap(entry, candidate) {
						t.rollback(reserved)
						return nil
					}

					// Value raced, or the entry was tombstoned; re-read.
					continue
				}
			}
		}

		idx = (idx + 1) & t.mask
		probes++
	}

	t.rollback(reserved)

	return ErrTableFull
}

// rollback hands an unused key reservation back to the store. If another
// append took the tail first the record stays behind as an orphan, which is
// permitted.
func (t *table[K, V]) rollback(reserved uint32) {
	if reserved != noReservation {
		t.keys.removeLast(uint16(reserved))
	}
}

// get probes with single-word snapshots. The cached hash filters slots
// cheaply; the key store is dereferenced only to confirm equality, and the
// returned value comes from the exact word whose key matched, so no reader
// can observe a value that was never paired with the key.
func (t *table[K, V]) get(key K) (V, bool) {
	var (
		hash = t.hashFunc(key)
		idx  = probeStart(hash, t.mask)
		zero V
	)

	for probes := 0; probes < t.maxProbes; probes++ {
		entry := t.slots[idx].Load()

		switch offset := entryOffset(entry); offset {
		case offsetEmpty:
			// Inserts never skip an empty slot on this probe sequence, so
			// the key cannot live further along.
			return zero, false

		case offsetTombstone:
			// Keep going: the key may have been inserted past this slot
			// while it was still occupied.

		default:
			if entryHash(entry) == hash {
				existing, ok := t.keys.get(offset - offsetBias)
				if ok && existing == key {
					return V(entryValue(entry)), true
				}
			}
		}

		idx = (idx + 1) & t.mask
	}

	return zero, false
}

// delete transitions Occupied -> Tombstoned with a single CAS. Returns false
// when the key is absent, including when another goroutine tombstoned it
// first.
func (t *table[K, V]) delete(key K) bool {
	var (
		hash = t.hashFunc(key)
		idx  = probeStart(hash, t.mask)
	)

	for probes := 0; probes < t.maxProbes; {
		slot := &t.slots[idx]
		entry := slot.Load()

		switch offset := entryOffset(entry); offset {
		case offsetEmpty:
			return false

		case offsetTombstone:

		default:
			if entryHash(entry) == hash {
				existing, ok := t.keys.get(offset - offsetBias)
				if ok && existing == key {
					if slot.CompareAndSwap(entry, tombstone(entry)) {
						t.count.Add(-1)
						t.tombstones.Add(1)
						return true
					}

					// The value changed or someone else removed it; re-read.
					continue
				}
			}
		}

		idx = (idx + 1) & t.mask
		probes++
	}

	return false
}

// compareAndSwap updates the value for key only if the current value equals
// old. The swap rewrites the whole word with the offset and hash bits
// unchanged, so it contends correctly with concurrent set and delete.
func (t *table[K, V]) compareAndSwap(key K, old, new V) bool {
	var (
		hash = t.hashFunc(key)
		idx  = probeStart(hash, t.mask)
	)

	for probes := 0; probes < t.maxProbes; {
		slot := &t.slots[idx]
		entry := slot.Load()

		switch offset := entryOffset(entry); offset {
		case offsetEmpty:
			return false

		case offsetTombstone:

		default:
			if entryHash(entry) == hash {
				existing, ok := t.keys.get(offset - offsetBias)
				if ok && existing == key {
					if entryValue(entry) != uint16(old) {
						return false
					}

					if slot.CompareAndSwap(entry, packEntry(offset, hash, uint16(new))) {
						return true
					}

					continue
				}
			}
		}

		idx = (idx + 1) & t.mask
		probes++
	}

	return false
}

// len is approximate while writers are active: the counter is bumped after
// the slot CAS, not atomically with it.
func (t *table[K, V]) len() int {
	return int(t.count.Load())
}

func (t *table[K, V]) stats() Stats {
	dead := int(t.tombstones.Load())

	return Stats{
		Size:                    int(t.count.Load()),
		Capacity:                t.capacity,
		TableSize:               int(t.mask) + 1,
		Tombstones:              dead,
		TombstonesCapacityRatio: float32(dead) / float32(t.capacity),
	}
}
