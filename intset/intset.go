// Package intset implements a sorted, contiguous-array set of signed
// integers with three self-promoting width encodings (2, 4, and 8 bytes).
//
// An IntSet stores its elements at the narrowest width that has fit every
// member it has ever held; the width only ever grows. Removing
// the element that forced a prior promotion does not demote the encoding
// back down — this mirrors the on-disk format's promotion rule exactly,
// trading a few extra bytes for an encoding that never oscillates.
package intset

import (
	"encoding/binary"
)

// Encoding is the element width, in bytes, an IntSet is currently packed
// at.
type Encoding uint32

const (
	Enc16 Encoding = 2
	Enc32 Encoding = 4
	Enc64 Encoding = 8
)

// IntSet is a sorted set of int64-range integers packed into a single
// contiguous buffer. The zero value is not usable; use New.
type IntSet struct {
	encoding Encoding
	contents []byte // encoding*length bytes, little-endian, ascending
}

// New returns an empty set at the narrowest encoding (Enc16).
func New() *IntSet {
	return &IntSet{encoding: Enc16}
}

// encodingFor returns the narrowest encoding able to represent v.
func encodingFor(v int64) Encoding {
	switch {
	case v < -2147483648 || v > 2147483647:
		return Enc64
	case v < -32768 || v > 32767:
		return Enc32
	default:
		return Enc16
	}
}

// Len reports the number of elements in the set.
func (s *IntSet) Len() int {
	return len(s.contents) / int(s.encoding)
}

// Encoding reports the current packed width.
func (s *IntSet) Encoding() Encoding { return s.encoding }

// Size reports the size in bytes of the backing buffer, not counting the
// small header fields a caller may choose to persist alongside it.
func (s *IntSet) Size() int { return len(s.contents) }

func (s *IntSet) get(index int) int64 {
	off := index * int(s.encoding)
	switch s.encoding {
	case Enc16:
		return int64(int16(binary.LittleEndian.Uint16(s.contents[off:])))
	case Enc32:
		return int64(int32(binary.LittleEndian.Uint32(s.contents[off:])))
	default:
		return int64(binary.LittleEndian.Uint64(s.contents[off:]))
	}
}

// Get returns the element at index, which must be in [0, Len()).
func (s *IntSet) Get(index int) (v int64, ok bool) {
	if index < 0 || index >= s.Len() {
		return 0, false
	}
	return s.get(index), true
}

func (s *IntSet) set(index int, v int64) {
	off := index * int(s.encoding)
	switch s.encoding {
	case Enc16:
		binary.LittleEndian.PutUint16(s.contents[off:], uint16(int16(v)))
	case Enc32:
		binary.LittleEndian.PutUint32(s.contents[off:], uint32(int32(v)))
	default:
		binary.LittleEndian.PutUint64(s.contents[off:], uint64(v))
	}
}

// search performs a binary search for v over the current encoding,
// fast-rejecting against the first and last elements before entering the
// loop. Returns the index of v if present, or the index it would be
// inserted at (to keep the set ascending) if not.
func (s *IntSet) search(v int64) (index int, found bool) {
	n := s.Len()
	if n == 0 {
		return 0, false
	}
	if v > s.get(n-1) {
		return n, false
	}
	if v < s.get(0) {
		return 0, false
	}
	lo, hi := 0, n-1
	for lo <= hi {
		mid := (lo + hi) / 2
		cur := s.get(mid)
		switch {
		case cur == v:
			return mid, true
		case cur < v:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return lo, false
}

// Contains reports whether v is a member of the set.
func (s *IntSet) Contains(v int64) bool {
	if encodingFor(v) > s.encoding {
		return false
	}
	_, found := s.search(v)
	return found
}

// upgradeAndInsert widens the buffer to newEnc, re-encodes every existing
// element, and places v at whichever end the promotion proves it belongs
// to (v forced the promotion, so it is strictly less than every existing
// element, or strictly greater than all of them).
//
// Widening runs back-to-front: the last element is moved to its new,
// wider slot before any earlier element is touched, so no element is
// overwritten before its old bytes have been read.
func (s *IntSet) upgradeAndInsert(newEnc Encoding, v int64) {
	n := s.Len()
	prepend := v < 0

	old := s.contents
	oldEnc := s.encoding
	newContents := make([]byte, (n+1)*int(newEnc))

	base := 0
	if prepend {
		base = 1
	}
	s.contents = newContents
	s.encoding = oldEnc // read old values at old width first
	for i := n - 1; i >= 0; i-- {
		off := i * int(oldEnc)
		var val int64
		switch oldEnc {
		case Enc16:
			val = int64(int16(binary.LittleEndian.Uint16(old[off:])))
		case Enc32:
			val = int64(int32(binary.LittleEndian.Uint32(old[off:])))
		default:
			val = int64(binary.LittleEndian.Uint64(old[off:]))
		}
		s.encoding = newEnc
		s.set(base+i, val)
		s.encoding = oldEnc
	}
	s.encoding = newEnc
	if prepend {
		s.set(0, v)
	} else {
		s.set(n, v)
	}
}

// Insert adds v to the set, promoting the encoding first if v does not
// fit the current width. Reports whether v was newly inserted (false if
// it was already a member).
func (s *IntSet) Insert(v int64) (inserted bool) {
	need := encodingFor(v)
	if need > s.encoding {
		s.upgradeAndInsert(need, v)
		return true
	}
	index, found := s.search(v)
	if found {
		return false
	}
	grown := make([]byte, len(s.contents)+int(s.encoding))
	copy(grown, s.contents[:index*int(s.encoding)])
	copy(grown[(index+1)*int(s.encoding):], s.contents[index*int(s.encoding):])
	s.contents = grown
	s.set(index, v)
	return true
}

// Remove deletes v from the set if present. The encoding is never
// demoted, even if v was the only element requiring the current width.
func (s *IntSet) Remove(v int64) (removed bool) {
	if encodingFor(v) > s.encoding {
		return false
	}
	index, found := s.search(v)
	if !found {
		return false
	}
	width := int(s.encoding)
	shrunk := make([]byte, len(s.contents)-width)
	copy(shrunk, s.contents[:index*width])
	copy(shrunk[index*width:], s.contents[(index+1)*width:])
	s.contents = shrunk
	return true
}

// Slice materializes every element in ascending order. Intended for
// tests, persistence, and replication framing, not hot-path iteration.
func (s *IntSet) Slice() []int64 {
	n := s.Len()
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = s.get(i)
	}
	return out
}

// Random returns a uniformly random element. Panics on an empty set, like
// indexing an empty slice; callers are expected to check Len() first.
func (s *IntSet) Random(intn func(n int) int) int64 {
	return s.get(intn(s.Len()))
}

// Marshal encodes the set using the on-disk format from §6:
// encoding:u32 LE | count:u32 LE | elements, little-endian at the current
// width.
func (s *IntSet) Marshal() []byte {
	n := s.Len()
	out := make([]byte, 8+len(s.contents))
	binary.LittleEndian.PutUint32(out[0:], uint32(s.encoding))
	binary.LittleEndian.PutUint32(out[4:], uint32(n))
	copy(out[8:], s.contents)
	return out
}

// Unmarshal decodes the on-disk format produced by Marshal. The decoded
// elements must already be strictly ascending and packed at the stated
// encoding; Unmarshal does not re-validate or re-pack them, mirroring the
// wire format's trust boundary (a corrupt blob is a persistence-layer
// concern, not this package's).
func Unmarshal(data []byte) (*IntSet, error) {
	if len(data) < 8 {
		return nil, ErrTruncated
	}
	enc := Encoding(binary.LittleEndian.Uint32(data[0:]))
	count := int(binary.LittleEndian.Uint32(data[4:]))
	switch enc {
	case Enc16, Enc32, Enc64:
	default:
		return nil, ErrUnknownEncoding
	}
	want := 8 + count*int(enc)
	if len(data) < want {
		return nil, ErrTruncated
	}
	contents := make([]byte, count*int(enc))
	copy(contents, data[8:want])
	return &IntSet{encoding: enc, contents: contents}, nil
}
