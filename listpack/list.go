// Package listpack implements the packed entry list: a single contiguous
// allocation holding a doubly-traversable sequence of small strings and
// integers, each entry length-prefixed both forward (so Next is O(1)) and
// backward (prevlen, so Prev is O(1) too) without any pointers.
//
// Every mutation reallocates the backing buffer, so callers never hold a
// raw pointer into it across a call that might mutate — only byte offsets,
// which are re-derived against the current buffer on every access. This
// mirrors the source format's "raw pointers through a reallocating
// allocation" design exactly, but replaces the pointer with an
// (offset int) pair that can never dangle: a stale offset just decodes to
// whatever now occupies that byte range, which callers are expected not to
// do (see Get and Next for the offset-validity contract).
package listpack

import (
	"bytes"
	"encoding/binary"
	"strconv"
)

const headerLen = 10 // totalBytes:u32 LE | tailOffset:u32 LE | count:u16 LE
const countSentinel = 0xFFFF

// List is a packed entry list. The zero value is not usable; use New.
type List struct {
	data  []byte
	count int // authoritative; the blob's count field mirrors this, capped at countSentinel
}

// New returns an empty list.
func New() *List {
	data := make([]byte, headerLen+1)
	data[headerLen] = endMarker
	l := &List{data: data}
	l.writeHeader(headerLen)
	return l
}

func (l *List) tailOffset() int       { return int(binary.LittleEndian.Uint32(l.data[4:8])) }
func (l *List) terminatorOffset() int { return len(l.data) - 1 }

func (l *List) writeHeader(tailOffset int) {
	binary.LittleEndian.PutUint32(l.data[0:4], uint32(len(l.data)))
	binary.LittleEndian.PutUint32(l.data[4:8], uint32(tailOffset))
	count := l.count
	if count > countSentinel {
		count = countSentinel
	}
	binary.LittleEndian.PutUint16(l.data[8:10], uint16(count))
}

// Len reports the number of entries.
func (l *List) Len() int { return l.count }

// BlobSize reports the size in bytes of the backing allocation.
func (l *List) BlobSize() int { return len(l.data) }

// Bytes returns the on-disk/on-wire representation described in §6. The
// returned slice must not be mutated by the caller.
func (l *List) Bytes() []byte { return l.data }

// Marshal is an alias for Bytes, matching the Marshal/Unmarshal naming used
// elsewhere in the package family.
func (l *List) Marshal() []byte { return l.Bytes() }

// Load parses a blob previously produced by Bytes/Marshal.
func Load(data []byte) (*List, error) {
	if len(data) < headerLen+1 {
		return nil, ErrTruncated
	}
	total := binary.LittleEndian.Uint32(data[0:4])
	if int(total) != len(data) {
		return nil, ErrCorrupt
	}
	if data[len(data)-1] != endMarker {
		return nil, ErrCorrupt
	}
	l := &List{data: append([]byte(nil), data...)}
	storedCount := binary.LittleEndian.Uint16(data[8:10])
	if storedCount == countSentinel {
		n := 0
		for off, ok := l.First(); ok; off, ok = l.Next(off) {
			n++
		}
		l.count = n
	} else {
		l.count = int(storedCount)
	}
	return l, nil
}

// First returns the offset of the first entry, or ok=false if empty.
func (l *List) First() (offset int, ok bool) {
	if l.data[headerLen] == endMarker {
		return 0, false
	}
	return headerLen, true
}

// Last returns the offset of the last entry, or ok=false if empty.
func (l *List) Last() (offset int, ok bool) {
	if l.count == 0 {
		return 0, false
	}
	return l.tailOffset(), true
}

// Next returns the offset of the entry following offset, or ok=false at
// the end of the list. offset must be a current entry's offset; it is not
// validated, since doing so would require an O(n) walk from the head and
// defeat the point of an O(1) successor lookup.
func (l *List) Next(offset int) (int, bool) {
	e := decodeEntryAt(l.data, offset)
	nxt := offset + e.totalSize()
	if l.data[nxt] == endMarker {
		return 0, false
	}
	return nxt, true
}

// Prev returns the offset of the entry preceding offset, or ok=false if
// offset is the first entry. This is O(1): the predecessor's total size
// is already sitting in offset's own prevlen field.
func (l *List) Prev(offset int) (int, bool) {
	if offset == headerLen {
		return 0, false
	}
	e := decodeEntryAt(l.data, offset)
	return offset - int(e.prevLen), true
}

// Index returns the offset of the i'th entry (0-based). A negative i
// counts from the tail (-1 is the last entry), walking the prevlen chain.
func (l *List) Index(i int) (offset int, ok bool) {
	if i >= 0 {
		off, ok := l.First()
		for ; ok && i > 0; i-- {
			off, ok = l.Next(off)
		}
		return off, ok
	}
	off, ok := l.Last()
	for i = -i - 1; ok && i > 0; i-- {
		off, ok = l.Prev(off)
	}
	return off, ok
}

// Get decodes the value stored at offset. offset must be a value
// previously returned by First, Last, Next, Prev, Index, or InsertBefore
// against this same list; passing anything else is undefined behavior.
func (l *List) Get(offset int) Value {
	e := decodeEntryAt(l.data, offset)
	return decodeValue(l.data, e)
}

// Compare reports whether the entry at offset holds the same logical
// value as raw — comparing byte-for-byte for strings, or against raw's
// decimal rendering for integers, so "123" matches an int-encoded 123.
func (l *List) Compare(offset int, raw []byte) bool {
	v := l.Get(offset)
	if v.Kind == KindString {
		return bytes.Equal(v.Str, raw)
	}
	return strconv.FormatInt(v.Int, 10) == string(raw)
}

// Find scans forward from from, comparing every (skip+1)'th entry against
// needle, and returns the offset of the first match.
func (l *List) Find(from int, needle []byte, skip int) (offset int, found bool) {
	offset = from
	ok := true
	pending := 0
	for ok {
		if pending == 0 {
			if l.Compare(offset, needle) {
				return offset, true
			}
			pending = skip
		} else {
			pending--
		}
		offset, ok = l.Next(offset)
	}
	return 0, false
}

func valueBytes(v Value) []byte {
	if v.Kind == KindString {
		return v.Str
	}
	return []byte(strconv.FormatInt(v.Int, 10))
}

// spliceInsert grows the blob, inserting n fresh bytes at pos (which must
// be a valid position within the current blob, including the terminator
// slot) and returns the region to fill.
func (l *List) spliceInsert(pos, n int) []byte {
	grown := make([]byte, len(l.data)+n)
	copy(grown, l.data[:pos])
	copy(grown[pos+n:], l.data[pos:])
	l.data = grown
	return grown[pos : pos+n]
}

// spliceDelete shrinks the blob, removing the n bytes starting at pos.
func (l *List) spliceDelete(pos, n int) {
	shrunk := make([]byte, len(l.data)-n)
	copy(shrunk, l.data[:pos])
	copy(shrunk[pos:], l.data[pos+n:])
	l.data = shrunk
}

// PushHead prepends raw as a new first entry.
func (l *List) PushHead(raw []byte) (int, error) { return l.InsertBefore(headerLen, raw) }

// PushTail appends raw as a new last entry.
func (l *List) PushTail(raw []byte) (int, error) { return l.InsertBefore(l.terminatorOffset(), raw) }

// InsertBefore inserts raw as a new entry immediately before offset (which
// may be an existing entry's offset, or the terminator offset to append).
func (l *List) InsertBefore(offset int, raw []byte) (int, error) {
	var predecessorTotal uint32
	atTerminator := offset == l.terminatorOffset()
	if atTerminator {
		if l.count > 0 {
			e := decodeEntryAt(l.data, l.tailOffset())
			predecessorTotal = uint32(e.totalSize())
		}
	} else {
		_, predecessorTotal = decodePrevLen(l.data, offset)
	}

	encBytes, payload := encodeRaw(raw)
	prevBuf := make([]byte, 5)
	prevLen := encodePrevLen(prevBuf, predecessorTotal)
	entryLen := prevLen + len(encBytes) + len(payload)

	if uint64(len(l.data))+uint64(entryLen) > maxBlobSize {
		return 0, ErrTooLarge
	}

	oldTail := l.tailOffset()
	countBefore := l.count

	dst := l.spliceInsert(offset, entryLen)
	copy(dst, prevBuf[:prevLen])
	copy(dst[prevLen:], encBytes)
	copy(dst[prevLen+len(encBytes):], payload)

	var newTail int
	switch {
	case countBefore == 0:
		newTail = offset
	case offset <= oldTail:
		newTail = oldTail + entryLen
	default:
		newTail = offset
	}
	l.count++
	l.writeHeader(newTail)

	l.cascadeUpdate(offset+entryLen, uint32(entryLen))
	return offset, nil
}

// Delete removes the entry at offset, returning the offset of whatever
// entry now occupies that position (the old successor), or ok=false if
// the list is now empty at that point.
func (l *List) Delete(offset int) (next int, ok bool) {
	if offset == l.terminatorOffset() {
		return 0, false
	}
	e := decodeEntryAt(l.data, offset)
	sz := e.totalSize()
	oldTail := l.tailOffset()

	l.spliceDelete(offset, sz)

	var newTail int
	switch {
	case offset == oldTail:
		if offset == headerLen {
			newTail = headerLen
		} else {
			newTail = offset - int(e.prevLen)
		}
	case offset < oldTail:
		newTail = oldTail - sz
	default:
		newTail = oldTail
	}
	l.count--
	l.writeHeader(newTail)

	l.cascadeUpdate(offset, e.prevLen)

	if l.data[offset] == endMarker {
		return offset, false
	}
	return offset, true
}

// DeleteRange removes count entries starting at the index'th entry
// (negative index counts from the tail, as in Index).
func (l *List) DeleteRange(index, count int) {
	offset, ok := l.Index(index)
	for i := 0; i < count && ok; i++ {
		offset, ok = l.Delete(offset)
	}
}

// cascadeUpdate is the central invariant from §4.2: propagate a
// predecessor total-size change forward until a successor's prevlen field
// is already the right size (rewriting its value either way), or the end
// of the list is reached. It never shrinks a 5-byte prevlen back to 1,
// which would let a boundary-sized entry flap between encodings on
// repeated edits; it only ever grows 1 to 5, which is why this loop is
// bounded by the list length instead of potentially oscillating forever.
func (l *List) cascadeUpdate(offset int, predecessorTotal uint32) {
	for {
		if offset >= len(l.data) || l.data[offset] == endMarker {
			return
		}
		curSize, curVal := decodePrevLen(l.data, offset)
		needSize := prevLenSizeFor(predecessorTotal)

		if curSize == needSize {
			if curVal != predecessorTotal {
				writePrevLenValue(l.data, offset, curSize, predecessorTotal)
			}
			return
		}

		if needSize > curSize {
			// 1 -> 5: grow in place, shifting the tail right by 4 bytes.
			tailOld := l.tailOffset()
			l.spliceInsert(offset+1, 4)
			writePrevLenValue(l.data, offset, 5, predecessorTotal)
			if tailOld > offset {
				tailOld += 4
			}
			l.writeHeader(tailOld)

			e := decodeEntryAt(l.data, offset)
			predecessorTotal = uint32(e.totalSize())
			offset += e.totalSize()
			continue
		}

		// 5 -> 1 would shrink: forbidden. Keep the 5-byte form, just
		// rewrite the embedded value; the entry's size doesn't change so
		// there is nothing further to propagate.
		writePrevLenValue(l.data, offset, curSize, predecessorTotal)
		return
	}
}

// Merge concatenates first's entries followed by second's, copying the
// shorter list's entries onto the longer one's buffer to minimize the
// amount of data moved.
func Merge(first, second *List) *List {
	if first.BlobSize() >= second.BlobSize() {
		for off, ok := second.First(); ok; off, ok = second.Next(off) {
			first.PushTail(valueBytes(second.Get(off)))
		}
		return first
	}
	for i := first.Len() - 1; i >= 0; i-- {
		off, _ := first.Index(i)
		second.PushHead(valueBytes(first.Get(off)))
	}
	return second
}
