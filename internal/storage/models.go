package storage

import (
	"time"

	"sunspec-monitor/internal/sunspec"
)

// DeviceState is the last known summary of a device.
type DeviceState struct {
	Name      string    `gorm:"primaryKey;size:64" json:"name"`
	Kind      string    `gorm:"size:16" json:"kind"`
	UnitID    uint8     `json:"unit_id"`
	Populated int       `json:"populated"`
	Expected  int       `json:"expected"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

// RegisterReading holds the latest value of one register. Rows are keyed
// by device and register key and overwritten on every update.
type RegisterReading struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Device    string    `gorm:"uniqueIndex:idx_device_key;size:64" json:"device"`
	Key       string    `gorm:"column:register_key;uniqueIndex:idx_device_key;size:64" json:"key"`
	Label     string    `json:"label"`
	Units     string    `json:"units,omitempty"`
	Kind      string    `gorm:"size:8" json:"kind"`
	Raw       string    `json:"raw"`
	Text      string    `json:"text,omitempty"`
	Display   string    `json:"display"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

// Reading converts the row back into its decoded form.
func (r RegisterReading) Reading() sunspec.Reading {
	var v sunspec.Value
	if kind, err := sunspec.ParseKind(r.Kind); err == nil {
		v, _ = sunspec.ParseValue(kind, r.Raw)
	}
	return sunspec.Reading{
		Key:     r.Key,
		Label:   r.Label,
		Units:   r.Units,
		Value:   v,
		Text:    r.Text,
		Display: r.Display,
	}
}
