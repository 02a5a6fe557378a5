package hashtable

import (
	"iter"
	"unsafe"
)

// wangMix is Thomas Wang's 64-bit integer mixer, used to fold the six
// structural values (both sub-tables' base pointer, size, and used count)
// into a single fingerprint.
func wangMix(h uint64) uint64 {
	h = ^h + (h << 21)
	h ^= h >> 24
	h = (h + (h << 3)) + (h << 8)
	h ^= h >> 14
	h = (h + (h << 2)) + (h << 4)
	h ^= h >> 28
	h += h << 31
	return h
}

func tableBase[K comparable, V any](buckets []*entry[K, V]) uint64 {
	if len(buckets) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(unsafe.SliceData(buckets))))
}

// Fingerprint returns a structural identity hash over both sub-tables'
// base pointer, size, and used count. It changes if and only if one of
// those six values changes on either sub-table, and is the basis for
// UnsafeIterator's mutation check.
func (t *Table[K, V]) Fingerprint() uint64 {
	vals := [6]uint64{
		tableBase(t.ht[0].buckets), uint64(t.ht[0].size()), uint64(t.ht[0].used),
		tableBase(t.ht[1].buckets), uint64(t.ht[1].size()), uint64(t.ht[1].used),
	}
	var hash uint64
	for _, v := range vals {
		hash += v
		hash = wangMix(hash)
	}
	return hash
}

// SafeIterator suppresses automatic incremental-rehash steps for its
// lifetime, so callers may freely add/delete through the table while
// holding one open. Always call Release, typically via defer.
type SafeIterator[K comparable, V any] struct {
	t        *Table[K, V]
	released bool
}

// NewSafeIterator opens a safe iterator over t.
func (t *Table[K, V]) NewSafeIterator() *SafeIterator[K, V] {
	t.safeIters++
	return &SafeIterator[K, V]{t: t}
}

// Release ends the iterator. Calling it more than once is a no-op.
func (it *SafeIterator[K, V]) Release() {
	if it.released {
		return
	}
	it.released = true
	it.t.safeIters--
}

// All walks every live entry across both sub-tables, in bucket order.
func (it *SafeIterator[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		t := it.t
		for table := 0; table < 2; table++ {
			for _, head := range t.ht[table].buckets {
				for e := head; e != nil; e = e.next {
					if !yield(e.key, e.val) {
						return
					}
				}
			}
		}
	}
}

// UnsafeIterator takes no rehash-suppressing lock: it is cheaper to open
// but any structural mutation to the table between NewUnsafeIterator and
// Release is a contract violation, caught (not silently tolerated) by a
// fingerprint mismatch at Release.
type UnsafeIterator[K comparable, V any] struct {
	t      *Table[K, V]
	before uint64
}

// NewUnsafeIterator opens an unsafe iterator over t, snapshotting its
// fingerprint.
func (t *Table[K, V]) NewUnsafeIterator() *UnsafeIterator[K, V] {
	return &UnsafeIterator[K, V]{t: t, before: t.Fingerprint()}
}

// All walks every live entry across both sub-tables. The table must not
// be mutated while this is in progress.
func (it *UnsafeIterator[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		t := it.t
		for table := 0; table < 2; table++ {
			for _, head := range t.ht[table].buckets {
				for e := head; e != nil; e = e.next {
					if !yield(e.key, e.val) {
						return
					}
				}
			}
		}
	}
}

// Release asserts the table's structural fingerprint hasn't changed since
// NewUnsafeIterator. A mismatch means the table was mutated mid-iteration,
// an invariant violation this package surfaces as a panic rather than a
// returned error, matching the error-handling split used elsewhere in this
// engine (bugs abort, arguments fail softly).
func (it *UnsafeIterator[K, V]) Release() {
	after := it.t.Fingerprint()
	if after != it.before {
		panic(&ErrFingerprintChanged{Before: it.before, After: after})
	}
}
