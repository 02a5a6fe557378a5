package listpack

import "errors"

var (
	// ErrTooLarge is returned by Push/InsertBefore when the resulting
	// blob would exceed the 2^30 byte size ceiling. Callers must check
	// before attempting the mutation that triggers it; there is no
	// partial application.
	ErrTooLarge = errors.New("listpack: blob would exceed maximum size")

	// ErrTruncated and ErrCorrupt are returned by Load when a blob fails
	// basic structural validation (too short, bad terminator, etc).
	ErrTruncated = errors.New("listpack: truncated blob")
	ErrCorrupt   = errors.New("listpack: corrupt blob")
)

// maxBlobSize is the 2^30 byte ceiling from §3/§4.2.
const maxBlobSize = 1 << 30
