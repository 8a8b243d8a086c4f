package sunspec

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Transport reads holding registers from a unit on the bus. Implementations
// own timeouts and must not interleave transactions on one connection.
type Transport interface {
	ReadHoldingRegisters(ctx context.Context, address, quantity uint16, unitID uint8) ([]uint16, error)
}

type DeviceConfig struct {
	UnitID        uint8
	Name          string
	Kind          string
	Base          uint16
	Registers     *RegisterMap
	Texts         TextMap
	MaxReadLength int
	Logger        *zap.Logger
}

// Device is one unit on the bus together with its register map and the
// values decoded by the latest reads.
type Device struct {
	unitID        uint8
	name          string
	kind          string
	base          uint16
	regs          *RegisterMap
	texts         TextMap
	maxReadLength int
	logger        *zap.Logger

	updateMu sync.Mutex

	mu    sync.RWMutex
	cache Cache
}

// Reading is one reported register.
type Reading struct {
	Key     string `json:"key" yaml:"key"`
	Label   string `json:"label" yaml:"label"`
	Units   string `json:"units,omitempty" yaml:"units,omitempty"`
	Value   Value  `json:"value" yaml:"value"`
	Text    string `json:"text,omitempty" yaml:"text,omitempty"`
	Display string `json:"display" yaml:"display"`
}

func NewDevice(cfg DeviceConfig) *Device {
	regs := cfg.Registers
	if regs == nil {
		regs = MustRegisterMap(nil)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("device_%d", cfg.UnitID)
	}
	return &Device{
		unitID:        cfg.UnitID,
		name:          name,
		kind:          cfg.Kind,
		base:          cfg.Base,
		regs:          regs,
		texts:         cfg.Texts,
		maxReadLength: cfg.MaxReadLength,
		logger:        logger.With(zap.String("device", name), zap.Uint8("unit_id", cfg.UnitID)),
		cache:         Cache{},
	}
}

func (d *Device) UnitID() uint8 { return d.unitID }
func (d *Device) Name() string { return d.name }
func (d *Device) Kind() string { return d.kind }
func (d *Device) Base() uint16 { return d.base }
func (d *Device) Registers() *RegisterMap { return d.regs }
func (d *Device) Texts() TextMap { return d.texts }
func (d *Device) Groups() [][]Register { return Group(d.regs.Registers(), d.maxReadLength) }
func (d *Device) Expected() int { return d.regs.Len() }

// ReadGroups issues one read per register group, in address order, and
// decodes the groups that came back. A failed group is logged and left out
// of the result; its registers are not present in the returned cache.
// Registers of successful groups are always present, absent values
// included, so callers can tell "read as not implemented" from "not read".
func (d *Device) ReadGroups(ctx context.Context, t Transport) Cache {
	decoded := Cache{}

	for _, group := range d.Groups() {
		start, count := Span(group)

		words, err := t.ReadHoldingRegisters(ctx, start, count, d.unitID)
		if err != nil {
			d.logger.Error("Failed to read register group",
				zap.String("start", fmt.Sprintf("0x%04X", start)),
				zap.Uint16("count", count),
				zap.Error(err))
			continue
		}
		if len(words) < int(count) {
			d.logger.Warn("Short register group response",
				zap.String("start", fmt.Sprintf("0x%04X", start)),
				zap.Uint16("count", count),
				zap.Int("received", len(words)))
		}

		cursor := 0
		for _, r := range group {
			end := cursor + int(r.Length)
			v, err := decode(slice(words, cursor, end), r.Type, r.Order)
			if err != nil {
				d.logger.Debug("Failed to decode register", zap.String("key", r.Key), zap.Error(err))
			}
			decoded[r.Key] = v
			cursor = end
		}
	}

	return decoded
}

// Update reads every group and merges the results into the cache. Registers
// of failed groups keep their previous values. It returns a copy of the
// whole cache; compare its length with Expected to spot partial reads.
func (d *Device) Update(ctx context.Context, t Transport) Cache {
	d.updateMu.Lock()
	defer d.updateMu.Unlock()

	decoded := d.ReadGroups(ctx, t)

	d.mu.Lock()
	defer d.mu.Unlock()
	for key, v := range decoded {
		if v.IsAbsent() {
			delete(d.cache, key)
			continue
		}
		d.cache[key] = v
	}
	return d.cache.clone()
}

// Cache returns a copy of the raw decoded values.
func (d *Device) Cache() Cache {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cache.clone()
}

// Populated counts registers holding a value.
func (d *Device) Populated() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cache)
}

// Raw returns the unscaled cached value of key.
func (d *Device) Raw(key string) Value {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cache[key]
}

// Value returns the scaled value of key.
func (d *Device) Value(key string) Value {
	r, ok := d.regs.Lookup(key)
	if !ok {
		return Value{}
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cache.Resolve(r)
}

func (d *Device) Text(key string) (string, bool) {
	r, ok := d.regs.Lookup(key)
	if !ok {
		return "", false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cache.Text(r, d.texts)
}

func (d *Device) Display(key string) string {
	r, ok := d.regs.Lookup(key)
	if !ok {
		return "N/A"
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cache.Display(r, d.texts)
}

// Readings resolves every non scale factor register in map order.
func (d *Device) Readings() []Reading {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.readings()
}

func (d *Device) readings() []Reading {
	regs := d.regs.Registers()
	out := make([]Reading, 0, len(regs))
	for _, r := range regs {
		if r.IsScaleFactor() {
			continue
		}
		text, _ := d.cache.Text(r, d.texts)
		out = append(out, Reading{
			Key:     r.Key,
			Label:   r.DisplayLabel(),
			Units:   r.Units,
			Value:   d.cache.Resolve(r),
			Text:    text,
			Display: d.cache.Display(r, d.texts),
		})
	}
	return out
}

// Report maps labels to display strings, scale factors excluded.
func (d *Device) Report() map[string]string {
	readings := d.Readings()
	out := make(map[string]string, len(readings))
	for _, r := range readings {
		out[r.Label] = r.Display
	}
	return out
}

func slice(words []uint16, from, to int) []uint16 {
	if from >= len(words) {
		return nil
	}
	if to > len(words) {
		to = len(words)
	}
	return words[from:to]
}
