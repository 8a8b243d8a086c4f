package solaredge

import (
	"context"
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s "sunspec-monitor/internal/sunspec"
)

type memTransport map[uint16]uint16

func (m memTransport) ReadHoldingRegisters(ctx context.Context, address, quantity uint16, unitID uint8) ([]uint16, error) {
	out := make([]uint16, quantity)
	for i := range out {
		out[i] = m[address+uint16(i)]
	}
	return out, nil
}

func (m memTransport) put(address uint16, words ...uint16) {
	for i, w := range words {
		m[address+uint16(i)] = w
	}
}

func (m memTransport) putString(address uint16, text string, length int) {
	b := make([]byte, length*2)
	copy(b, text)
	for i := 0; i < length; i++ {
		m[address+uint16(i)] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
}

func TestInverterDefaults(t *testing.T) {
	d := Inverter(1, Options{})
	assert.Equal(t, "inverter_1", d.Name())
	assert.Equal(t, KindInverter, d.Kind())

	d = Inverter(1, Options{Name: "MyInverter"})
	assert.Equal(t, "MyInverter", d.Name())
}

func TestInverterRegisters(t *testing.T) {
	regs := Inverter(1, Options{}).Registers()

	for _, key := range []string{
		"i_ac_current", "i_ac_currenta", "i_ac_currentb", "i_ac_currentc",
		"i_ac_voltageab", "i_ac_voltagecn", "i_dc_current", "i_dc_voltage",
		"i_dc_power", "i_temp_sink", "i_status", "i_status_vendor",
	} {
		_, ok := regs.Lookup(key)
		assert.True(t, ok, key)
	}

	for _, key := range []string{"i_ac_current", "i_ac_currenta", "i_ac_currentb", "i_ac_currentc"} {
		r, _ := regs.Lookup(key)
		assert.Equal(t, "i_ac_current_sf", r.ScaleFactorKey, key)
	}
	sink, _ := regs.Lookup("i_temp_sink")
	assert.Equal(t, "i_temp_sf", sink.ScaleFactorKey)
	energy, _ := regs.Lookup("i_ac_energy_wh")
	assert.Equal(t, "i_ac_energy_wh_sf", energy.ScaleFactorKey)
}

func TestRegisterTablesSorted(t *testing.T) {
	for name, table := range map[string][]s.Register{
		"inverter": inverterRegisters,
		"meter":    meterRegisters,
		"battery":  batteryRegisters,
	} {
		assert.True(t, sort.SliceIsSorted(table, func(i, j int) bool {
			return table[i].Address < table[j].Address
		}), name)
	}
}

func TestMeterDefaults(t *testing.T) {
	d, err := Meter(1, Options{})
	require.NoError(t, err)
	assert.Equal(t, "meter_1_0x0", d.Name())
	assert.Equal(t, MeterBases[0], d.Base())

	r, ok := d.Registers().Lookup("m_ac_current")
	require.True(t, ok)
	assert.Equal(t, uint16(0x9CBB+0x43), r.Address)

	var voltage, power, energy int
	for _, r := range d.Registers().Registers() {
		switch {
		case strings.Contains(r.Key, "voltage"):
			voltage++
		case strings.Contains(r.Key, "power"):
			power++
		case strings.Contains(r.Key, "wh"):
			energy++
		}
	}
	assert.Positive(t, voltage)
	assert.Positive(t, power)
	assert.Positive(t, energy)
}

func TestMeterSlots(t *testing.T) {
	m0, err := Meter(1, Options{})
	require.NoError(t, err)
	m1, err := Meter(2, Options{Index: 1})
	require.NoError(t, err)
	assert.NotEqual(t, m0.Base(), m1.Base())

	_, err = Meter(1, Options{Index: len(MeterBases)})
	assert.Error(t, err)
	_, err = Battery(1, Options{Index: -1})
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	for _, kind := range Kinds {
		d, err := Build(kind, 1, Options{})
		require.NoError(t, err, kind)
		assert.Equal(t, kind, d.Kind())
		assert.True(t, ValidKind(kind))
	}

	d, err := Build("Meter", 3, Options{Index: 2, Name: "grid"})
	require.NoError(t, err)
	assert.Equal(t, "grid", d.Name())
	assert.Equal(t, MeterBases[2], d.Base())

	_, err = Build("heatpump", 1, Options{})
	assert.Error(t, err)
	assert.False(t, ValidKind("heatpump"))
	assert.Zero(t, Slots("heatpump"))
}

func TestDefaultNameMatchesBuild(t *testing.T) {
	for _, kind := range Kinds {
		for index := 0; index < Slots(kind); index++ {
			d, err := Build(kind, 7, Options{Index: index})
			require.NoError(t, err)
			assert.Equal(t, d.Name(), DefaultName(kind, 7, index))
		}
	}
	assert.Equal(t, "meter_2_0x1", DefaultName("METER", 2, 1))
}

func TestInverterUpdate(t *testing.T) {
	bus := memTransport{}
	bus.putString(0x9C44, "SolarEdge", 16)
	bus.putString(0x9C54, "SE10K", 16)
	bus.put(0x9C85, 103)
	bus.put(0x9C87, 1234, 411, 412, 411, 0xFFFE)
	bus.put(0x9C93, 1500, 0xFFFF)
	bus.put(0x9C95, 49990, 0xFFFD)
	bus.put(0x9C9D, 0x0001, 0x86A0, 0)
	bus.put(0x9CA7, 4130)
	bus.put(0x9CAA, 0xFFFE, 4)

	d := Inverter(1, Options{Name: "Inverter"})
	d.Update(context.Background(), bus)

	assert.Equal(t, "SolarEdge", d.Display("c_manufacturer"))
	assert.Equal(t, "Three Phase Inverter", d.Display("c_sunspec_did"))
	assert.Equal(t, "4.11 A", d.Display("i_ac_currenta"))
	assert.Equal(t, "150 W", d.Display("i_ac_power"))
	assert.Equal(t, "49.99 Hz", d.Display("i_ac_frequency"))
	assert.Equal(t, "100000 Wh", d.Display("i_ac_energy_wh"))
	assert.Equal(t, "41.3 °C", d.Display("i_temp_sink"))
	assert.Equal(t, "Producing", d.Display("i_status"))

	report := d.Report()
	assert.Equal(t, "Producing", report["Status"])
	assert.NotContains(t, report, "AC Power Scale Factor")
}

func TestBatteryUpdate(t *testing.T) {
	bus := memTransport{}
	base := BatteryBases[0]
	bus.putString(base, "LG", 16)

	rated := math.Float32bits(9800)
	bus.put(base+0x42, uint16(rated), uint16(rated>>16))
	soe := math.Float32bits(87.5)
	bus.put(base+0x84, uint16(soe), uint16(soe>>16))
	bus.put(base+0x76, 0x5678, 0x1234, 0, 0)
	bus.put(base+0x86, 3, 0)
	nan := uint32(0x7FC00000)
	bus.put(base+0x74, uint16(nan), uint16(nan>>16))

	d, err := Battery(1, Options{})
	require.NoError(t, err)
	d.Update(context.Background(), bus)

	assert.Equal(t, "battery_1_0", d.Name())
	assert.Equal(t, "LG", d.Display("c_manufacturer"))
	assert.Equal(t, "9800 Wh", d.Display("b_rated_energy"))
	assert.Equal(t, "87.5 %", d.Display("b_soe"))
	assert.Equal(t, "305419896 Wh", d.Display("b_export_energy_wh"))
	assert.Equal(t, "Charge", d.Display("b_status"))
	assert.Equal(t, "N/A", d.Display("b_dc_power"))
}
