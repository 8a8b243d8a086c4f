package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, 1502, cfg.Modbus.Port)
	assert.Equal(t, 10*time.Second, cfg.Modbus.Timeout)
	assert.Equal(t, 120, cfg.Modbus.MaxReadLength)
	assert.Equal(t, 30*time.Second, cfg.Collector.Interval)
	require.Len(t, cfg.Devices, 1)
	assert.Equal(t, "inverter", cfg.Devices[0].Kind)
	assert.Equal(t, uint8(1), cfg.Devices[0].UnitID)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"*"}, cfg.API.CORSOrigins)
}

func TestLoadDevices(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
modbus:
  host: 10.0.0.5
  port: 502
  timeout: 3s
devices:
  - name: Inverter
    kind: inverter
    unit_id: 1
  - name: EV Charger
    kind: inverter
    unit_id: 2
  - name: Meter
    kind: meter
    unit_id: 1
    index: 0
  - kind: battery
    unit_id: 1
    index: 1
`))
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.Modbus.Host)
	assert.Equal(t, 3*time.Second, cfg.Modbus.Timeout)
	require.Len(t, cfg.Devices, 4)
	assert.Equal(t, "EV Charger", cfg.Devices[1].Name)
	assert.Equal(t, uint8(2), cfg.Devices[1].UnitID)
	assert.Equal(t, 1, cfg.Devices[3].Index)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SUNSPEC_MODBUS_HOST", "inverter.lan")
	cfg, err := Load(writeConfig(t, "modbus:\n  host: 10.0.0.5\n"))
	require.NoError(t, err)
	assert.Equal(t, "inverter.lan", cfg.Modbus.Host)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Modbus:    ModbusConfig{Host: "h", Port: 502, Timeout: time.Second},
			Devices:   []DeviceConfig{{Name: "inv", Kind: "inverter", UnitID: 1}},
			Collector: CollectorConfig{Interval: time.Second},
		}
	}

	ok := base()
	require.NoError(t, ok.Validate())

	ok.Modbus.MaxReadLength = 125
	ok.Devices = append(ok.Devices,
		DeviceConfig{Kind: "inverter", UnitID: 1},
		DeviceConfig{Kind: "meter", UnitID: 1, Index: 0},
		DeviceConfig{Kind: "meter", UnitID: 1, Index: 1},
	)
	require.NoError(t, ok.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty host", func(c *Config) { c.Modbus.Host = "" }},
		{"bad port", func(c *Config) { c.Modbus.Port = 70000 }},
		{"zero interval", func(c *Config) { c.Collector.Interval = 0 }},
		{"no devices", func(c *Config) { c.Devices = nil }},
		{"unknown kind", func(c *Config) { c.Devices[0].Kind = "heatpump" }},
		{"meter index", func(c *Config) { c.Devices = []DeviceConfig{{Kind: "meter", Index: 3}} }},
		{"duplicate name", func(c *Config) { c.Devices = append(c.Devices, c.Devices[0]) }},
		{"duplicate default name", func(c *Config) {
			c.Devices = []DeviceConfig{{Kind: "inverter", UnitID: 1}, {Kind: "inverter", UnitID: 1}}
		}},
		{"explicit name matches default", func(c *Config) {
			c.Devices = []DeviceConfig{{Name: "inverter_1", Kind: "inverter", UnitID: 2}, {Kind: "inverter", UnitID: 1}}
		}},
		{"read length over protocol limit", func(c *Config) { c.Modbus.MaxReadLength = 126 }},
		{"mqtt without broker", func(c *Config) { c.MQTT = MQTTConfig{Enabled: true} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
