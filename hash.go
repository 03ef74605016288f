package folkmap

import (
	"hash/maphash"

	"github.com/zeebo/xxh3"
)

// HashFunc produces the 32-bit hash cached inside each slot word. It must be
// stable for the lifetime of a map instance.
type HashFunc[K comparable] func(K) uint32

// MakeDefaultHashFunc returns the hash function used when no override is
// given: xxh3 for string keys, the runtime's maphash with a per-map seed for
// everything else. Both are folded to 32 bits so the cached-hash short
// circuit keeps the full discriminating power of the original hash.
func MakeDefaultHashFunc[K comparable]() HashFunc[K] {
	var zero K
	if _, ok := any(zero).(string); ok {
		return func(k K) uint32 {
			return fold32(xxh3.HashString(any(k).(string)))
		}
	}

	seed := maphash.MakeSeed()

	return func(k K) uint32 {
		return fold32(maphash.Comparable(seed, k))
	}
}

// fold32 compresses a 64-bit hash to 32 bits without discarding the high
// half.
func fold32(h uint64) uint32 {
	return uint32(h ^ (h >> 32))
}

// probeStart maps a hash to the first slot index of its probe sequence. The
// table size is a power of two, so wraparound is a mask.
func probeStart(hash, mask uint32) uint32 {
	return hash & mask
}
