package folkmap

// Key-store offsets are biased by 2 inside a slot word so that a zeroed
// table reads as all-empty and the tombstone marker stays distinct from
// every real offset.
const (
	offsetEmpty     uint16 = 0
	offsetTombstone uint16 = 1
	offsetBias      uint16 = 2
)

const (
	entryEmpty uint64 = 0

	hashShift  = 16
	valueShift = 48

	offsetMask uint64 = 0xFFFF
	hashMask   uint64 = 0xFFFFFFFF
)

// packEntry builds the single-word slot representation:
//
//	bits  0..15  biased key-store offset (0 = empty, 1 = tombstone)
//	bits 16..47  cached 32-bit key hash
//	bits 48..63  value payload
//
// The word is only ever read and written whole, through atomic operations,
// so no observer can see an {offset, hash, value} combination that was never
// written by a single writer.
func packEntry(offset uint16, hash uint32, value uint16) uint64 {
	return uint64(offset) | uint64(hash)<<hashShift | uint64(value)<<valueShift
}

func entryOffset(e uint64) uint16 {
	return uint16(e & offsetMask)
}

func entryHash(e uint64) uint32 {
	return uint32((e >> hashShift) & hashMask)
}

func entryValue(e uint64) uint16 {
	return uint16(e >> valueShift)
}

// tombstone degrades an occupied entry's offset to the tombstone marker,
// leaving the hash and value bits in place. A tombstoned slot is terminal:
// it is never reused and never terminates a probe sequence.
func tombstone(e uint64) uint64 {
	return e&^offsetMask | uint64(offsetTombstone)
}
