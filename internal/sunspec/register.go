package sunspec

import (
	"fmt"
	"sort"
	"strings"
)

// ScaleFactorSuffix marks a register holding the power-of-ten exponent
// for the register whose key precedes it.
const ScaleFactorSuffix = "_sf"

type DataType uint8

const (
	UINT16 DataType = iota + 1
	INT16
	UINT32
	INT32
	UINT64
	INT64
	FLOAT32
	STRING
)

var dataTypeNames = map[DataType]string{
	UINT16:  "UINT16",
	INT16:   "INT16",
	UINT32:  "UINT32",
	INT32:   "INT32",
	UINT64:  "UINT64",
	INT64:   "INT64",
	FLOAT32: "FLOAT32",
	STRING:  "STRING",
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", uint8(t))
}

// Words returns the fixed register width of a numeric type, 0 for STRING
// and unknown types.
func (t DataType) Words() int {
	switch t {
	case UINT16, INT16:
		return 1
	case UINT32, INT32, FLOAT32:
		return 2
	case UINT64, INT64:
		return 4
	default:
		return 0
	}
}

func (t DataType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func ParseDataType(s string) (DataType, error) {
	for t, name := range dataTypeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// ByteOrder is the order of 16-bit words inside a multi-word value.
// Bytes inside a word are always big-endian.
type ByteOrder uint8

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

func (o ByteOrder) String() string {
	if o == LittleEndian {
		return "little"
	}
	return "big"
}

func (o ByteOrder) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Register describes one named value in a device's holding register space.
type Register struct {
	Key            string    `json:"key" yaml:"key"`
	Address        uint16    `json:"address" yaml:"address"`
	Length         uint16    `json:"length" yaml:"length"`
	Type           DataType  `json:"type" yaml:"type"`
	Order          ByteOrder `json:"order" yaml:"order"`
	ScaleFactorKey string    `json:"scale_factor_key,omitempty" yaml:"scale_factor_key,omitempty"`
	Label          string    `json:"label,omitempty" yaml:"label,omitempty"`
	Units          string    `json:"units,omitempty" yaml:"units,omitempty"`
}

// IsScaleFactor reports whether r holds an exponent for another register.
func (r Register) IsScaleFactor() bool {
	return strings.HasSuffix(r.Key, ScaleFactorSuffix)
}

// End is the first address past r.
func (r Register) End() int {
	return int(r.Address) + int(r.Length)
}

func (r Register) DisplayLabel() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Key
}

func (r Register) String() string {
	return fmt.Sprintf("%s@0x%04X[%d %s %s]", r.Key, r.Address, r.Length, r.Type, r.Order)
}

// RegisterMap is the immutable, validated register table of one device.
type RegisterMap struct {
	regs  []Register
	index map[string]int
}

// NewRegisterMap validates regs and links scale factors. A register whose
// key is K gets ScaleFactorKey K+"_sf" when that register exists and no
// link was set explicitly.
func NewRegisterMap(regs []Register) (*RegisterMap, error) {
	m := &RegisterMap{
		regs:  make([]Register, len(regs)),
		index: make(map[string]int, len(regs)),
	}
	copy(m.regs, regs)

	for i, r := range m.regs {
		if r.Key == "" {
			return nil, fmt.Errorf("register at 0x%04X has no key", r.Address)
		}
		if r.Length == 0 {
			return nil, fmt.Errorf("register %s has zero length", r.Key)
		}
		if r.End() > 0x10000 {
			return nil, fmt.Errorf("register %s runs past the end of the address space", r.Key)
		}
		if w := r.Type.Words(); w > 0 && int(r.Length) != w {
			return nil, fmt.Errorf("register %s: %s needs %d words, got %d", r.Key, r.Type, w, r.Length)
		}
		if _, ok := dataTypeNames[r.Type]; !ok {
			return nil, fmt.Errorf("register %s: unsupported data type %s", r.Key, r.Type)
		}
		if _, dup := m.index[r.Key]; dup {
			return nil, fmt.Errorf("duplicate register key %s", r.Key)
		}
		m.index[r.Key] = i
	}

	for i := range m.regs {
		r := &m.regs[i]
		if r.ScaleFactorKey == "" {
			if _, ok := m.index[r.Key+ScaleFactorSuffix]; ok {
				r.ScaleFactorKey = r.Key + ScaleFactorSuffix
			}
			continue
		}
		if _, ok := m.index[r.ScaleFactorKey]; !ok {
			return nil, fmt.Errorf("register %s refers to missing scale factor %s", r.Key, r.ScaleFactorKey)
		}
	}

	sorted := m.Sorted()
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		if prev.End() > int(next.Address) {
			return nil, fmt.Errorf("register %s overlaps %s", prev, next)
		}
	}

	return m, nil
}

// MustRegisterMap is like NewRegisterMap but panics on invalid tables.
// It is meant for static device definitions.
func MustRegisterMap(regs []Register) *RegisterMap {
	m, err := NewRegisterMap(regs)
	if err != nil {
		panic(err)
	}
	return m
}

// Registers returns the registers in definition order.
func (m *RegisterMap) Registers() []Register {
	out := make([]Register, len(m.regs))
	copy(out, m.regs)
	return out
}

// Sorted returns the registers ordered by address.
func (m *RegisterMap) Sorted() []Register {
	out := m.Registers()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func (m *RegisterMap) Lookup(key string) (Register, bool) {
	i, ok := m.index[key]
	if !ok {
		return Register{}, false
	}
	return m.regs[i], true
}

func (m *RegisterMap) Len() int {
	return len(m.regs)
}

// Shift returns a copy of the map with every address moved by offset.
// Device families that repeat a block at several bases use it.
func (m *RegisterMap) Shift(offset uint16) (*RegisterMap, error) {
	regs := m.Registers()
	for i := range regs {
		addr := int(regs[i].Address) + int(offset)
		if addr > 0xFFFF {
			return nil, fmt.Errorf("register %s shifted past the end of the address space", regs[i].Key)
		}
		regs[i].Address = uint16(addr)
	}
	return NewRegisterMap(regs)
}
