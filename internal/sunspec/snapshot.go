package sunspec

import "time"

// Snapshot is a consistent view of a device at one point in time.
type Snapshot struct {
	Name      string           `json:"name" yaml:"name"`
	Kind      string           `json:"kind,omitempty" yaml:"kind,omitempty"`
	UnitID    uint8            `json:"unit_id" yaml:"unit_id"`
	Timestamp time.Time        `json:"timestamp" yaml:"timestamp"`
	Populated int              `json:"populated" yaml:"populated"`
	Expected  int              `json:"expected" yaml:"expected"`
	Values    map[string]Value `json:"values" yaml:"values"`
	Readings  []Reading        `json:"readings" yaml:"readings"`
}

func (d *Device) Snapshot(at time.Time) Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	readings := d.readings()
	values := make(map[string]Value, len(readings))
	for _, r := range readings {
		if !r.Value.IsAbsent() {
			values[r.Key] = r.Value
		}
	}

	return Snapshot{
		Name:      d.name,
		Kind:      d.kind,
		UnitID:    d.unitID,
		Timestamp: at,
		Populated: len(d.cache),
		Expected:  d.regs.Len(),
		Values:    values,
		Readings:  readings,
	}
}

// Complete reports whether every register holds a value.
func (s Snapshot) Complete() bool { return s.Populated == s.Expected }

// Report maps labels to display strings.
func (s Snapshot) Report() map[string]string {
	out := make(map[string]string, len(s.Readings))
	for _, r := range s.Readings {
		out[r.Label] = r.Display
	}
	return out
}
