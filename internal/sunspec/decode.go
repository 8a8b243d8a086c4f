package sunspec

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// SunSpec "not implemented" bit patterns.
const (
	sentinelInt16   uint16 = 0x8000
	sentinelUint16  uint16 = 0xFFFF
	sentinelInt32   uint32 = 0x80000000
	sentinelUint32  uint32 = 0xFFFFFFFF
	sentinelInt64   uint64 = 0x8000000000000000
	sentinelUint64  uint64 = 0xFFFFFFFFFFFFFFFF
	sentinelFloat32 uint32 = 0x7FC00000
)

// Decode turns the words of one register into a typed value. Empty input,
// sentinels and malformed buffers all come back absent.
func Decode(words []uint16, t DataType, o ByteOrder) Value {
	v, _ := decode(words, t, o)
	return v
}

func decode(words []uint16, t DataType, o ByteOrder) (Value, error) {
	if len(words) == 0 {
		return Value{}, nil
	}

	buf := pack(words, o)

	if t == STRING {
		return decodeString(buf), nil
	}

	if w := t.Words(); w == 0 {
		return Value{}, fmt.Errorf("%w: unsupported data type %s", ErrDecode, t)
	} else if len(words) != w {
		return Value{}, fmt.Errorf("%w: %s needs %d words, got %d", ErrDecode, t, w, len(words))
	}

	switch t {
	case INT16:
		raw := binary.BigEndian.Uint16(buf)
		if raw == sentinelInt16 {
			return Value{}, nil
		}
		return IntValue(int64(int16(raw))), nil
	case UINT16:
		raw := binary.BigEndian.Uint16(buf)
		if raw == sentinelUint16 {
			return Value{}, nil
		}
		return UintValue(uint64(raw)), nil
	case INT32:
		raw := binary.BigEndian.Uint32(buf)
		if raw == sentinelInt32 {
			return Value{}, nil
		}
		return IntValue(int64(int32(raw))), nil
	case UINT32:
		raw := binary.BigEndian.Uint32(buf)
		if raw == sentinelUint32 {
			return Value{}, nil
		}
		return UintValue(uint64(raw)), nil
	case INT64:
		raw := binary.BigEndian.Uint64(buf)
		if raw == sentinelInt64 {
			return Value{}, nil
		}
		return IntValue(int64(raw)), nil
	case UINT64:
		raw := binary.BigEndian.Uint64(buf)
		if raw == sentinelUint64 {
			return Value{}, nil
		}
		return UintValue(raw), nil
	case FLOAT32:
		raw := binary.BigEndian.Uint32(buf)
		if raw == sentinelFloat32 {
			return Value{}, nil
		}
		return FloatValue(float64(math.Float32frombits(raw))), nil
	}

	return Value{}, fmt.Errorf("%w: unsupported data type %s", ErrDecode, t)
}

// pack lays the words out big-endian, reversing their order for
// little-endian word order.
func pack(words []uint16, o ByteOrder) []byte {
	buf := make([]byte, 2*len(words))
	n := len(words)
	for i, w := range words {
		pos := i
		if o == LittleEndian {
			pos = n - 1 - i
		}
		binary.BigEndian.PutUint16(buf[2*pos:], w)
	}
	return buf
}

func decodeString(buf []byte) Value {
	uninitialised := true
	for _, b := range buf {
		if b != 0xFF {
			uninitialised = false
			break
		}
	}
	if uninitialised {
		return Value{}
	}

	s := strings.ToValidUTF8(string(buf), "")
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}
	}
	return StringValue(s)
}
