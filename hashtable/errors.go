package hashtable

import "errors"

// ErrKeyExists is returned by Add when the key is already present.
var ErrKeyExists = errors.New("hashtable: key already exists")

// ErrFingerprintChanged is raised (via panic, not a returned error) when an
// UnsafeIterator's Release observes a structural mutation that happened
// while it was live. It is an invariant violation, not a recoverable
// condition: callers that need to mutate during iteration must use a safe
// iterator instead.
type ErrFingerprintChanged struct {
	Before, After uint64
}

func (e *ErrFingerprintChanged) Error() string {
	return "hashtable: fingerprint changed during unsafe iteration"
}
