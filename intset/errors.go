package intset

import "errors"

var (
	// ErrTruncated is returned by Unmarshal when data is shorter than its
	// own header claims.
	ErrTruncated = errors.New("intset: truncated blob")
	// ErrUnknownEncoding is returned by Unmarshal when the encoding field
	// is not one of Enc16/Enc32/Enc64.
	ErrUnknownEncoding = errors.New("intset: unknown encoding")
)
