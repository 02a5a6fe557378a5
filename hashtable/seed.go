package hashtable

import (
	"crypto/rand"
	"sync/atomic"

	"github.com/dchest/siphash"
)

// processSeed is the 16-byte key for the default hasher, set once at
// process start and shared by every Table that doesn't supply its own
// HashFunc. Using a single process-wide seed (rather than one per table)
// matches the source design's "seeded once at startup" hasher and keeps
// hash(k) stable for the lifetime of the process, which the scan-cursor's
// no-miss guarantee depends on.
var processSeed = func() [16]byte {
	var k [16]byte
	if _, err := rand.Read(k[:]); err != nil {
		panic("hashtable: failed to seed default hasher: " + err.Error())
	}
	return k
}()

// SetSeed overrides the process-wide default-hasher seed. It exists for
// deterministic tests and replay tooling; production code should rely on
// the random seed chosen at init.
func SetSeed(key [16]byte) { processSeed = key }

// siphashBytes hashes raw with the process seed using SipHash-2-4, the
// pseudorandom function the default hasher is built on.
func siphashBytes(raw []byte) uint64 {
	return siphash.Hash(
		uint64(processSeed[0])|uint64(processSeed[1])<<8|uint64(processSeed[2])<<16|uint64(processSeed[3])<<24|
			uint64(processSeed[4])<<32|uint64(processSeed[5])<<40|uint64(processSeed[6])<<48|uint64(processSeed[7])<<56,
		uint64(processSeed[8])|uint64(processSeed[9])<<8|uint64(processSeed[10])<<16|uint64(processSeed[11])<<24|
			uint64(processSeed[12])<<32|uint64(processSeed[13])<<40|uint64(processSeed[14])<<48|uint64(processSeed[15])<<56,
		raw,
	)
}

// StringHasher hashes string keys with the process-seeded default hasher.
func StringHasher(s string) uint64 { return siphashBytes([]byte(s)) }

// BytesHasher hashes []byte keys with the process-seeded default hasher.
func BytesHasher(b []byte) uint64 { return siphashBytes(b) }

// Int64Hasher hashes int64 keys with the process-seeded default hasher.
func Int64Hasher(v int64) uint64 {
	var buf [8]byte
	u := uint64(v)
	for i := 0; i < 8; i++ {
		buf[i] = byte(u >> (8 * i))
	}
	return siphashBytes(buf[:])
}

// allowResize is the global flag from §4.3's resize policy: when unset,
// a table only expands once used/size exceeds 5 rather than at used/size
// >= 1. A long-running snapshot fork typically clears it to avoid
// triggering copy-on-write page duplication from table growth.
var allowResize int32 = 1

// SetAllowResize sets the process-wide resize policy flag.
func SetAllowResize(v bool) {
	if v {
		atomic.StoreInt32(&allowResize, 1)
	} else {
		atomic.StoreInt32(&allowResize, 0)
	}
}

// AllowResize reports the current process-wide resize policy flag.
func AllowResize() bool { return atomic.LoadInt32(&allowResize) != 0 }

// WithResizeDisabled runs fn with the global resize flag cleared, restoring
// its previous value afterward. Nests correctly with itself but is not
// goroutine-safe against concurrent toggling by unrelated callers, which
// mirrors the single-threaded assumption the rest of this engine makes.
func WithResizeDisabled(fn func()) {
	prev := AllowResize()
	SetAllowResize(false)
	defer SetAllowResize(prev)
	fn()
}
