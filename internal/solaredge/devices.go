package solaredge

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	s "sunspec-monitor/internal/sunspec"
)

const (
	KindInverter = "inverter"
	KindMeter    = "meter"
	KindBattery  = "battery"
)

// Kinds lists the supported device kinds.
var Kinds = []string{KindInverter, KindMeter, KindBattery}

var (
	inverterMap = s.MustRegisterMap(inverterRegisters)
	meterMap    = s.MustRegisterMap(meterRegisters)
	batteryMap  = s.MustRegisterMap(batteryRegisters)
)

// Options tunes how a device is built. Index picks the meter or battery
// slot and is ignored for inverters.
type Options struct {
	Name          string
	Index         int
	MaxReadLength int
	Logger        *zap.Logger
}

func Inverter(unitID uint8, opts Options) *s.Device {
	name := opts.Name
	if name == "" {
		name = DefaultName(KindInverter, unitID, opts.Index)
	}
	return s.NewDevice(s.DeviceConfig{
		UnitID:        unitID,
		Name:          name,
		Kind:          KindInverter,
		Registers:     inverterMap,
		Texts:         Texts,
		MaxReadLength: opts.MaxReadLength,
		Logger:        opts.Logger,
	})
}

func Meter(unitID uint8, opts Options) (*s.Device, error) {
	regs, base, err := RegisterMap(KindMeter, opts.Index)
	if err != nil {
		return nil, err
	}
	name := opts.Name
	if name == "" {
		name = DefaultName(KindMeter, unitID, opts.Index)
	}
	return s.NewDevice(s.DeviceConfig{
		UnitID:        unitID,
		Name:          name,
		Kind:          KindMeter,
		Base:          base,
		Registers:     regs,
		Texts:         Texts,
		MaxReadLength: opts.MaxReadLength,
		Logger:        opts.Logger,
	}), nil
}

func Battery(unitID uint8, opts Options) (*s.Device, error) {
	regs, base, err := RegisterMap(KindBattery, opts.Index)
	if err != nil {
		return nil, err
	}
	name := opts.Name
	if name == "" {
		name = DefaultName(KindBattery, unitID, opts.Index)
	}
	return s.NewDevice(s.DeviceConfig{
		UnitID:        unitID,
		Name:          name,
		Kind:          KindBattery,
		Base:          base,
		Registers:     regs,
		Texts:         Texts,
		MaxReadLength: opts.MaxReadLength,
		Logger:        opts.Logger,
	}), nil
}

// DefaultName is the name a device of kind gets when none is configured.
func DefaultName(kind string, unitID uint8, index int) string {
	switch strings.ToLower(kind) {
	case KindMeter:
		return fmt.Sprintf("meter_%d_0x%x", unitID, index)
	case KindBattery:
		return fmt.Sprintf("battery_%d_%d", unitID, index)
	default:
		return fmt.Sprintf("inverter_%d", unitID)
	}
}

// Build constructs a device from a configured kind name.
func Build(kind string, unitID uint8, opts Options) (*s.Device, error) {
	switch strings.ToLower(kind) {
	case KindInverter:
		return Inverter(unitID, opts), nil
	case KindMeter:
		return Meter(unitID, opts)
	case KindBattery:
		return Battery(unitID, opts)
	default:
		return nil, fmt.Errorf("unknown device kind %q", kind)
	}
}

// RegisterMap returns the absolute register map of a device kind and the
// base address it was shifted to.
func RegisterMap(kind string, index int) (*s.RegisterMap, uint16, error) {
	var bases []uint16
	var rel *s.RegisterMap

	switch strings.ToLower(kind) {
	case KindInverter:
		return inverterMap, 0, nil
	case KindMeter:
		bases, rel = MeterBases, meterMap
	case KindBattery:
		bases, rel = BatteryBases, batteryMap
	default:
		return nil, 0, fmt.Errorf("unknown device kind %q", kind)
	}

	if index < 0 || index >= len(bases) {
		return nil, 0, fmt.Errorf("%s index %d out of range [0, %d)", kind, index, len(bases))
	}
	regs, err := rel.Shift(bases[index])
	if err != nil {
		return nil, 0, fmt.Errorf("failed to place %s %d: %w", kind, index, err)
	}
	return regs, bases[index], nil
}

// ValidKind reports whether kind names a supported device family.
func ValidKind(kind string) bool {
	for _, k := range Kinds {
		if strings.EqualFold(k, kind) {
			return true
		}
	}
	return false
}

// Slots returns how many instances of kind a single unit can expose.
func Slots(kind string) int {
	switch strings.ToLower(kind) {
	case KindInverter:
		return 1
	case KindMeter:
		return len(MeterBases)
	case KindBattery:
		return len(BatteryBases)
	}
	return 0
}
