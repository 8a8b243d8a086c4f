package sunspec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode is the inverse of Decode. It produces the words a device would
// serve for v. Strings are NUL padded to length words; numeric types ignore
// length and use their fixed width.
func Encode(v Value, t DataType, o ByteOrder, length int) ([]uint16, error) {
	var buf []byte

	switch t {
	case STRING:
		s, ok := v.Text()
		if !ok {
			return nil, fmt.Errorf("cannot encode %v as %s", v.Interface(), t)
		}
		if len(s) > 2*length {
			return nil, fmt.Errorf("string %q does not fit in %d words", s, length)
		}
		buf = make([]byte, 2*length)
		copy(buf, s)
	case INT16, UINT16:
		n, ok := integerBits(v, t)
		if !ok {
			return nil, fmt.Errorf("cannot encode %v as %s", v.Interface(), t)
		}
		buf = binary.BigEndian.AppendUint16(nil, uint16(n))
	case INT32, UINT32:
		n, ok := integerBits(v, t)
		if !ok {
			return nil, fmt.Errorf("cannot encode %v as %s", v.Interface(), t)
		}
		buf = binary.BigEndian.AppendUint32(nil, uint32(n))
	case INT64, UINT64:
		n, ok := integerBits(v, t)
		if !ok {
			return nil, fmt.Errorf("cannot encode %v as %s", v.Interface(), t)
		}
		buf = binary.BigEndian.AppendUint64(nil, n)
	case FLOAT32:
		f, ok := v.Float64()
		if !ok {
			return nil, fmt.Errorf("cannot encode %v as %s", v.Interface(), t)
		}
		buf = binary.BigEndian.AppendUint32(nil, math.Float32bits(float32(f)))
	default:
		return nil, fmt.Errorf("unsupported data type %s", t)
	}

	n := len(buf) / 2
	words := make([]uint16, n)
	for i := range words {
		pos := i
		if o == LittleEndian {
			pos = n - 1 - i
		}
		words[pos] = binary.BigEndian.Uint16(buf[2*i:])
	}
	return words, nil
}

func integerBits(v Value, t DataType) (uint64, bool) {
	switch v.Kind() {
	case Int:
		if t == UINT16 || t == UINT32 || t == UINT64 {
			return 0, false
		}
		return uint64(v.i), true
	case Uint:
		if t == INT16 || t == INT32 || t == INT64 {
			return 0, false
		}
		return v.u, true
	}
	return 0, false
}
