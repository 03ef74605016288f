package folkmap

import "sync/atomic"

// record is one stored key. ready is the publish flag: it is set only after
// the key write completed, so get never observes a half-written record.
type record[K comparable] struct {
	ready atomic.Uint32
	key   K
}

// keyStore is a fixed-capacity append-only array of keys. Offsets handed out
// by append are stable for the life of the map: records never move, and only
// the current tail may be taken back (insert-race rollback). Orphaned
// records waste space and nothing more; there is no compaction.
type keyStore[K comparable] struct {
	records []record[K]
	next    atomic.Uint32
}

func (s *keyStore[K]) init(capacity int) {
	s.records = make([]record[K], capacity)
}

// append reserves the next offset with a CAS bump, writes the key, then
// publishes it. The bump-then-write-then-mark-ready order is what lets
// readers dereference offsets without locks.
func (s *keyStore[K]) append(key K) (uint16, error) {
	for {
		next := s.next.Load()
		if next >= uint32(len(s.records)) {
			return 0, ErrTableFull
		}

		if !s.next.CompareAndSwap(next, next+1) {
			continue
		}

		r := &s.records[next]
		r.key = key
		r.ready.Store(1)

		return uint16(next), nil
	}
}

// get returns the key at offset, or false if the offset has not completed
// publication yet. Never blocks.
func (s *keyStore[K]) get(offset uint16) (K, bool) {
	r := &s.records[offset]
	if r.ready.Load() == 0 {
		var zero K
		return zero, false
	}

	return r.key, true
}

// removeLast takes a reservation back, but only while it is still the tail.
// The record is unpublished first; if the CAS shows another append won the
// tail in the meantime, the record is an orphan and its publish flag is
// restored. Only the reserving goroutine may call this, and only for an
// offset that was never published into the slot table.
func (s *keyStore[K]) removeLast(offset uint16) bool {
	r := &s.records[offset]
	r.ready.Store(0)

	if s.next.CompareAndSwap(uint32(offset)+1, uint32(offset)) {
		return true
	}

	r.ready.Store(1)

	return false
}

// len reports how many offsets have been reserved, published or not.
func (s *keyStore[K]) len() int {
	return int(s.next.Load())
}
