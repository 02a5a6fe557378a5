package listpack

import (
	"encoding/binary"
	"strconv"
)

// tryParseInt accepts raw payloads the way the writer does: at most 32
// ASCII digits (optionally signed) that round-trip exactly through a
// signed 64-bit integer. Rejecting anything that doesn't round-trip
// (leading zeros, "+5", whitespace, "-0") keeps Get(Put(x)) == x for the
// string form without the list ever materializing it.
func tryParseInt(raw []byte) (int64, bool) {
	if len(raw) == 0 || len(raw) > 32 {
		return 0, false
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	if strconv.FormatInt(v, 10) != string(raw) {
		return 0, false
	}
	return v, true
}

// intTag picks the narrowest integer encoding able to hold v.
func intTag(v int64) (tag byte, payloadSize int) {
	switch {
	case v >= 0 && v <= 12:
		return byte(int64(tagImmMin) + v), 0
	case v >= -128 && v <= 127:
		return tagInt8, 1
	case v >= -32768 && v <= 32767:
		return tagInt16, 2
	case v >= -8388608 && v <= 8388607:
		return tagInt24, 3
	case v >= -2147483648 && v <= 2147483647:
		return tagInt32, 4
	default:
		return tagInt64, 8
	}
}

func encodeIntPayload(tag byte, v int64, out []byte) {
	switch tag {
	case tagInt8:
		out[0] = byte(v)
	case tagInt16:
		binary.LittleEndian.PutUint16(out, uint16(v))
	case tagInt24:
		out[0] = byte(v)
		out[1] = byte(v >> 8)
		out[2] = byte(v >> 16)
	case tagInt32:
		binary.LittleEndian.PutUint32(out, uint32(v))
	case tagInt64:
		binary.LittleEndian.PutUint64(out, uint64(v))
	}
}

// encodeRaw chooses the on-disk encoding for a caller-supplied payload:
// integer if it parses and round-trips, narrowest width thereof;
// otherwise a string sized to the smallest length encoding that fits.
// It returns the encoding-tag bytes and the payload bytes to store after
// them.
func encodeRaw(raw []byte) (encBytes []byte, payload []byte) {
	if v, ok := tryParseInt(raw); ok {
		tag, payloadSize := intTag(v)
		payload = make([]byte, payloadSize)
		encodeIntPayload(tag, v, payload)
		return []byte{tag}, payload
	}
	n := len(raw)
	payload = append([]byte(nil), raw...)
	switch {
	case n <= 63:
		return []byte{tagStr6 | byte(n)}, payload
	case n <= 16383:
		return []byte{tagStr14 | byte(n>>8), byte(n)}, payload
	default:
		enc := make([]byte, 5)
		enc[0] = tagStr32
		binary.BigEndian.PutUint32(enc[1:], uint32(n))
		return enc, payload
	}
}
