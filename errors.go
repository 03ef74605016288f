package folkmap

import "errors"

var (
	// ErrInvalidCapacity is returned by New when the requested capacity is
	// zero, negative, or exceeds MaxCapacity, or when the load factor would
	// blow the table past the 16-bit offset domain.
	ErrInvalidCapacity = errors.New("folkmap: invalid capacity")

	// ErrInvalidLoadFactor is returned by New when the load factor is
	// outside (0, 1).
	ErrInvalidLoadFactor = errors.New("folkmap: invalid load factor")

	// ErrTableFull is returned by Set when no slot can be claimed for the
	// key. The map never grows, so retrying the same insert is futile.
	ErrTableFull = errors.New("folkmap: table is full")
)
