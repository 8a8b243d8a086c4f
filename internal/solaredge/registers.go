package solaredge

import s "sunspec-monitor/internal/sunspec"

// SolarEdge exposes meters and batteries through the inverter's address
// space, each one at its own base.
var (
	MeterBases   = []uint16{0x9CBB, 0x9D69, 0x9E17}
	BatteryBases = []uint16{0xE100, 0xE200}
)

// Inverter: SunSpec common block (40004) followed by inverter model 10x.
var inverterRegisters = []s.Register{
	{Key: "c_manufacturer", Address: 0x9C44, Length: 16, Type: s.STRING, Label: "Manufacturer"},
	{Key: "c_model", Address: 0x9C54, Length: 16, Type: s.STRING, Label: "Model"},
	{Key: "c_version", Address: 0x9C6C, Length: 8, Type: s.STRING, Label: "Version"},
	{Key: "c_serialnumber", Address: 0x9C74, Length: 16, Type: s.STRING, Label: "Serial Number"},
	{Key: "c_deviceaddress", Address: 0x9C84, Length: 1, Type: s.UINT16, Label: "Device Address"},
	{Key: "c_sunspec_did", Address: 0x9C85, Length: 1, Type: s.UINT16, Label: "SunSpec DID"},
	{Key: "c_sunspec_length", Address: 0x9C86, Length: 1, Type: s.UINT16, Label: "SunSpec Length"},

	{Key: "i_ac_current", Address: 0x9C87, Length: 1, Type: s.UINT16, Label: "AC Current", Units: "A"},
	{Key: "i_ac_currenta", Address: 0x9C88, Length: 1, Type: s.UINT16, Label: "AC Current Phase A", Units: "A", ScaleFactorKey: "i_ac_current_sf"},
	{Key: "i_ac_currentb", Address: 0x9C89, Length: 1, Type: s.UINT16, Label: "AC Current Phase B", Units: "A", ScaleFactorKey: "i_ac_current_sf"},
	{Key: "i_ac_currentc", Address: 0x9C8A, Length: 1, Type: s.UINT16, Label: "AC Current Phase C", Units: "A", ScaleFactorKey: "i_ac_current_sf"},
	{Key: "i_ac_current_sf", Address: 0x9C8B, Length: 1, Type: s.INT16, Label: "AC Current Scale Factor"},

	{Key: "i_ac_voltageab", Address: 0x9C8C, Length: 1, Type: s.UINT16, Label: "AC Voltage Phase AB", Units: "V", ScaleFactorKey: "i_ac_voltage_sf"},
	{Key: "i_ac_voltagebc", Address: 0x9C8D, Length: 1, Type: s.UINT16, Label: "AC Voltage Phase BC", Units: "V", ScaleFactorKey: "i_ac_voltage_sf"},
	{Key: "i_ac_voltageca", Address: 0x9C8E, Length: 1, Type: s.UINT16, Label: "AC Voltage Phase CA", Units: "V", ScaleFactorKey: "i_ac_voltage_sf"},
	{Key: "i_ac_voltagean", Address: 0x9C8F, Length: 1, Type: s.UINT16, Label: "AC Voltage Phase AN", Units: "V", ScaleFactorKey: "i_ac_voltage_sf"},
	{Key: "i_ac_voltagebn", Address: 0x9C90, Length: 1, Type: s.UINT16, Label: "AC Voltage Phase BN", Units: "V", ScaleFactorKey: "i_ac_voltage_sf"},
	{Key: "i_ac_voltagecn", Address: 0x9C91, Length: 1, Type: s.UINT16, Label: "AC Voltage Phase CN", Units: "V", ScaleFactorKey: "i_ac_voltage_sf"},
	{Key: "i_ac_voltage_sf", Address: 0x9C92, Length: 1, Type: s.INT16, Label: "AC Voltage Scale Factor"},

	{Key: "i_ac_power", Address: 0x9C93, Length: 1, Type: s.INT16, Label: "AC Power", Units: "W"},
	{Key: "i_ac_power_sf", Address: 0x9C94, Length: 1, Type: s.INT16, Label: "AC Power Scale Factor"},
	{Key: "i_ac_frequency", Address: 0x9C95, Length: 1, Type: s.UINT16, Label: "AC Frequency", Units: "Hz"},
	{Key: "i_ac_frequency_sf", Address: 0x9C96, Length: 1, Type: s.INT16, Label: "AC Frequency Scale Factor"},
	{Key: "i_ac_va", Address: 0x9C97, Length: 1, Type: s.INT16, Label: "AC VA", Units: "VA"},
	{Key: "i_ac_va_sf", Address: 0x9C98, Length: 1, Type: s.INT16, Label: "AC VA Scale Factor"},
	{Key: "i_ac_var", Address: 0x9C99, Length: 1, Type: s.INT16, Label: "AC VAR", Units: "VAR"},
	{Key: "i_ac_var_sf", Address: 0x9C9A, Length: 1, Type: s.INT16, Label: "AC VAR Scale Factor"},
	{Key: "i_ac_pf", Address: 0x9C9B, Length: 1, Type: s.INT16, Label: "AC PF", Units: "%"},
	{Key: "i_ac_pf_sf", Address: 0x9C9C, Length: 1, Type: s.INT16, Label: "AC PF Scale Factor"},
	{Key: "i_ac_energy_wh", Address: 0x9C9D, Length: 2, Type: s.INT32, Label: "AC Energy Wh", Units: "Wh"},
	{Key: "i_ac_energy_wh_sf", Address: 0x9C9F, Length: 1, Type: s.INT16, Label: "AC Energy Wh Scale Factor"},

	{Key: "i_dc_current", Address: 0x9CA0, Length: 1, Type: s.UINT16, Label: "DC Current", Units: "A"},
	{Key: "i_dc_current_sf", Address: 0x9CA1, Length: 1, Type: s.INT16, Label: "DC Current Scale Factor"},
	{Key: "i_dc_voltage", Address: 0x9CA2, Length: 1, Type: s.UINT16, Label: "DC Voltage", Units: "V"},
	{Key: "i_dc_voltage_sf", Address: 0x9CA3, Length: 1, Type: s.INT16, Label: "DC Voltage Scale Factor"},
	{Key: "i_dc_power", Address: 0x9CA4, Length: 1, Type: s.INT16, Label: "DC Power", Units: "W"},
	{Key: "i_dc_power_sf", Address: 0x9CA5, Length: 1, Type: s.INT16, Label: "DC Power Scale Factor"},

	{Key: "i_temp_sink", Address: 0x9CA7, Length: 1, Type: s.INT16, Label: "Heat Sink Temperature", Units: "°C", ScaleFactorKey: "i_temp_sf"},
	{Key: "i_temp_sf", Address: 0x9CAA, Length: 1, Type: s.INT16, Label: "Heat Sink Temperature Scale Factor"},
	{Key: "i_status", Address: 0x9CAB, Length: 1, Type: s.UINT16, Label: "Status"},
	{Key: "i_status_vendor", Address: 0x9CAC, Length: 1, Type: s.UINT16, Label: "Status Vendor"},
}

// Meter: common block and meter model 20x, addresses relative to the
// meter's base.
var meterRegisters = []s.Register{
	{Key: "c_manufacturer", Address: 0x00, Length: 16, Type: s.STRING, Label: "Manufacturer"},
	{Key: "c_model", Address: 0x10, Length: 16, Type: s.STRING, Label: "Model"},
	{Key: "c_option", Address: 0x20, Length: 8, Type: s.STRING, Label: "Option"},
	{Key: "c_version", Address: 0x28, Length: 8, Type: s.STRING, Label: "Version"},
	{Key: "c_serialnumber", Address: 0x30, Length: 16, Type: s.STRING, Label: "Serial Number"},
	{Key: "c_deviceaddress", Address: 0x40, Length: 1, Type: s.UINT16, Label: "Device Address"},
	{Key: "c_sunspec_did", Address: 0x41, Length: 1, Type: s.UINT16, Label: "SunSpec DID"},
	{Key: "c_sunspec_length", Address: 0x42, Length: 1, Type: s.UINT16, Label: "SunSpec Length"},

	{Key: "m_ac_current", Address: 0x43, Length: 1, Type: s.INT16, Label: "AC Current", Units: "A"},
	{Key: "m_ac_currenta", Address: 0x44, Length: 1, Type: s.INT16, Label: "AC Current Phase A", Units: "A", ScaleFactorKey: "m_ac_current_sf"},
	{Key: "m_ac_currentb", Address: 0x45, Length: 1, Type: s.INT16, Label: "AC Current Phase B", Units: "A", ScaleFactorKey: "m_ac_current_sf"},
	{Key: "m_ac_currentc", Address: 0x46, Length: 1, Type: s.INT16, Label: "AC Current Phase C", Units: "A", ScaleFactorKey: "m_ac_current_sf"},
	{Key: "m_ac_current_sf", Address: 0x47, Length: 1, Type: s.INT16, Label: "AC Current Scale Factor"},

	{Key: "m_ac_voltage_ln", Address: 0x48, Length: 1, Type: s.INT16, Label: "AC Voltage LN", Units: "V", ScaleFactorKey: "m_ac_voltage_sf"},
	{Key: "m_ac_voltage_an", Address: 0x49, Length: 1, Type: s.INT16, Label: "AC Voltage Phase AN", Units: "V", ScaleFactorKey: "m_ac_voltage_sf"},
	{Key: "m_ac_voltage_bn", Address: 0x4A, Length: 1, Type: s.INT16, Label: "AC Voltage Phase BN", Units: "V", ScaleFactorKey: "m_ac_voltage_sf"},
	{Key: "m_ac_voltage_cn", Address: 0x4B, Length: 1, Type: s.INT16, Label: "AC Voltage Phase CN", Units: "V", ScaleFactorKey: "m_ac_voltage_sf"},
	{Key: "m_ac_voltage_ll", Address: 0x4C, Length: 1, Type: s.INT16, Label: "AC Voltage LL", Units: "V", ScaleFactorKey: "m_ac_voltage_sf"},
	{Key: "m_ac_voltage_ab", Address: 0x4D, Length: 1, Type: s.INT16, Label: "AC Voltage Phase AB", Units: "V", ScaleFactorKey: "m_ac_voltage_sf"},
	{Key: "m_ac_voltage_bc", Address: 0x4E, Length: 1, Type: s.INT16, Label: "AC Voltage Phase BC", Units: "V", ScaleFactorKey: "m_ac_voltage_sf"},
	{Key: "m_ac_voltage_ca", Address: 0x4F, Length: 1, Type: s.INT16, Label: "AC Voltage Phase CA", Units: "V", ScaleFactorKey: "m_ac_voltage_sf"},
	{Key: "m_ac_voltage_sf", Address: 0x50, Length: 1, Type: s.INT16, Label: "AC Voltage Scale Factor"},

	{Key: "m_ac_freq", Address: 0x51, Length: 1, Type: s.INT16, Label: "AC Frequency", Units: "Hz"},
	{Key: "m_ac_freq_sf", Address: 0x52, Length: 1, Type: s.INT16, Label: "AC Frequency Scale Factor"},

	{Key: "m_ac_power", Address: 0x53, Length: 1, Type: s.INT16, Label: "AC Real Power", Units: "W"},
	{Key: "m_ac_powera", Address: 0x54, Length: 1, Type: s.INT16, Label: "AC Real Power Phase A", Units: "W", ScaleFactorKey: "m_ac_power_sf"},
	{Key: "m_ac_powerb", Address: 0x55, Length: 1, Type: s.INT16, Label: "AC Real Power Phase B", Units: "W", ScaleFactorKey: "m_ac_power_sf"},
	{Key: "m_ac_powerc", Address: 0x56, Length: 1, Type: s.INT16, Label: "AC Real Power Phase C", Units: "W", ScaleFactorKey: "m_ac_power_sf"},
	{Key: "m_ac_power_sf", Address: 0x57, Length: 1, Type: s.INT16, Label: "AC Real Power Scale Factor"},

	{Key: "m_ac_va", Address: 0x58, Length: 1, Type: s.INT16, Label: "AC Apparent Power", Units: "VA"},
	{Key: "m_ac_vaa", Address: 0x59, Length: 1, Type: s.INT16, Label: "AC Apparent Power Phase A", Units: "VA", ScaleFactorKey: "m_ac_va_sf"},
	{Key: "m_ac_vab", Address: 0x5A, Length: 1, Type: s.INT16, Label: "AC Apparent Power Phase B", Units: "VA", ScaleFactorKey: "m_ac_va_sf"},
	{Key: "m_ac_vac", Address: 0x5B, Length: 1, Type: s.INT16, Label: "AC Apparent Power Phase C", Units: "VA", ScaleFactorKey: "m_ac_va_sf"},
	{Key: "m_ac_va_sf", Address: 0x5C, Length: 1, Type: s.INT16, Label: "AC Apparent Power Scale Factor"},

	{Key: "m_ac_var", Address: 0x5D, Length: 1, Type: s.INT16, Label: "AC Reactive Power", Units: "VAR"},
	{Key: "m_ac_vara", Address: 0x5E, Length: 1, Type: s.INT16, Label: "AC Reactive Power Phase A", Units: "VAR", ScaleFactorKey: "m_ac_var_sf"},
	{Key: "m_ac_varb", Address: 0x5F, Length: 1, Type: s.INT16, Label: "AC Reactive Power Phase B", Units: "VAR", ScaleFactorKey: "m_ac_var_sf"},
	{Key: "m_ac_varc", Address: 0x60, Length: 1, Type: s.INT16, Label: "AC Reactive Power Phase C", Units: "VAR", ScaleFactorKey: "m_ac_var_sf"},
	{Key: "m_ac_var_sf", Address: 0x61, Length: 1, Type: s.INT16, Label: "AC Reactive Power Scale Factor"},

	{Key: "m_ac_pf", Address: 0x62, Length: 1, Type: s.INT16, Label: "AC Power Factor", Units: "%"},
	{Key: "m_ac_pfa", Address: 0x63, Length: 1, Type: s.INT16, Label: "AC Power Factor Phase A", Units: "%", ScaleFactorKey: "m_ac_pf_sf"},
	{Key: "m_ac_pfb", Address: 0x64, Length: 1, Type: s.INT16, Label: "AC Power Factor Phase B", Units: "%", ScaleFactorKey: "m_ac_pf_sf"},
	{Key: "m_ac_pfc", Address: 0x65, Length: 1, Type: s.INT16, Label: "AC Power Factor Phase C", Units: "%", ScaleFactorKey: "m_ac_pf_sf"},
	{Key: "m_ac_pf_sf", Address: 0x66, Length: 1, Type: s.INT16, Label: "AC Power Factor Scale Factor"},

	{Key: "m_exported_wh", Address: 0x67, Length: 2, Type: s.UINT32, Label: "Exported Energy", Units: "Wh", ScaleFactorKey: "m_energy_wh_sf"},
	{Key: "m_exported_wha", Address: 0x69, Length: 2, Type: s.UINT32, Label: "Exported Energy Phase A", Units: "Wh", ScaleFactorKey: "m_energy_wh_sf"},
	{Key: "m_exported_whb", Address: 0x6B, Length: 2, Type: s.UINT32, Label: "Exported Energy Phase B", Units: "Wh", ScaleFactorKey: "m_energy_wh_sf"},
	{Key: "m_exported_whc", Address: 0x6D, Length: 2, Type: s.UINT32, Label: "Exported Energy Phase C", Units: "Wh", ScaleFactorKey: "m_energy_wh_sf"},
	{Key: "m_imported_wh", Address: 0x6F, Length: 2, Type: s.UINT32, Label: "Imported Energy", Units: "Wh", ScaleFactorKey: "m_energy_wh_sf"},
	{Key: "m_imported_wha", Address: 0x71, Length: 2, Type: s.UINT32, Label: "Imported Energy Phase A", Units: "Wh", ScaleFactorKey: "m_energy_wh_sf"},
	{Key: "m_imported_whb", Address: 0x73, Length: 2, Type: s.UINT32, Label: "Imported Energy Phase B", Units: "Wh", ScaleFactorKey: "m_energy_wh_sf"},
	{Key: "m_imported_whc", Address: 0x75, Length: 2, Type: s.UINT32, Label: "Imported Energy Phase C", Units: "Wh", ScaleFactorKey: "m_energy_wh_sf"},
	{Key: "m_energy_wh_sf", Address: 0x77, Length: 1, Type: s.INT16, Label: "Energy Scale Factor"},
}

// Battery: SolarEdge storage block, addresses relative to the battery's
// base. Numeric values are served low word first.
var batteryRegisters = []s.Register{
	{Key: "c_manufacturer", Address: 0x00, Length: 16, Type: s.STRING, Label: "Manufacturer"},
	{Key: "c_model", Address: 0x10, Length: 16, Type: s.STRING, Label: "Model"},
	{Key: "c_version", Address: 0x20, Length: 16, Type: s.STRING, Label: "Version"},
	{Key: "c_serialnumber", Address: 0x30, Length: 16, Type: s.STRING, Label: "Serial Number"},
	{Key: "c_deviceaddress", Address: 0x40, Length: 1, Type: s.UINT16, Label: "Device Address"},

	{Key: "b_rated_energy", Address: 0x42, Length: 2, Type: s.FLOAT32, Order: s.LittleEndian, Label: "Rated Energy", Units: "Wh"},
	{Key: "b_max_charge_power", Address: 0x44, Length: 2, Type: s.FLOAT32, Order: s.LittleEndian, Label: "Max Charge Continuous Power", Units: "W"},
	{Key: "b_max_discharge_power", Address: 0x46, Length: 2, Type: s.FLOAT32, Order: s.LittleEndian, Label: "Max Discharge Continuous Power", Units: "W"},
	{Key: "b_max_charge_peak_power", Address: 0x48, Length: 2, Type: s.FLOAT32, Order: s.LittleEndian, Label: "Max Charge Peak Power", Units: "W"},
	{Key: "b_max_discharge_peak_power", Address: 0x4A, Length: 2, Type: s.FLOAT32, Order: s.LittleEndian, Label: "Max Discharge Peak Power", Units: "W"},

	{Key: "b_temp_average", Address: 0x6C, Length: 2, Type: s.FLOAT32, Order: s.LittleEndian, Label: "Average Temperature", Units: "°C"},
	{Key: "b_temp_max", Address: 0x6E, Length: 2, Type: s.FLOAT32, Order: s.LittleEndian, Label: "Max Temperature", Units: "°C"},
	{Key: "b_dc_voltage", Address: 0x70, Length: 2, Type: s.FLOAT32, Order: s.LittleEndian, Label: "Instantaneous Voltage", Units: "V"},
	{Key: "b_dc_current", Address: 0x72, Length: 2, Type: s.FLOAT32, Order: s.LittleEndian, Label: "Instantaneous Current", Units: "A"},
	{Key: "b_dc_power", Address: 0x74, Length: 2, Type: s.FLOAT32, Order: s.LittleEndian, Label: "Instantaneous Power", Units: "W"},
	{Key: "b_export_energy_wh", Address: 0x76, Length: 4, Type: s.UINT64, Order: s.LittleEndian, Label: "Lifetime Export Energy", Units: "Wh"},
	{Key: "b_import_energy_wh", Address: 0x7A, Length: 4, Type: s.UINT64, Order: s.LittleEndian, Label: "Lifetime Import Energy", Units: "Wh"},
	{Key: "b_energy_max", Address: 0x7E, Length: 2, Type: s.FLOAT32, Order: s.LittleEndian, Label: "Max Energy", Units: "Wh"},
	{Key: "b_energy_available", Address: 0x80, Length: 2, Type: s.FLOAT32, Order: s.LittleEndian, Label: "Available Energy", Units: "Wh"},
	{Key: "b_soh", Address: 0x82, Length: 2, Type: s.FLOAT32, Order: s.LittleEndian, Label: "State of Health", Units: "%"},
	{Key: "b_soe", Address: 0x84, Length: 2, Type: s.FLOAT32, Order: s.LittleEndian, Label: "State of Energy", Units: "%"},
	{Key: "b_status", Address: 0x86, Length: 2, Type: s.UINT32, Order: s.LittleEndian, Label: "Status"},
	{Key: "b_status_internal", Address: 0x88, Length: 2, Type: s.UINT32, Order: s.LittleEndian, Label: "Internal Status"},
}

// Texts maps enumerated registers to their meaning.
var Texts = s.TextMap{
	"i_status": {
		0: "Undefined",
		1: "Off",
		2: "Sleeping",
		3: "Starting",
		4: "Producing",
		5: "Throttled",
		6: "Shutting Down",
		7: "Fault",
		8: "Standby",
	},
	"c_sunspec_did": {
		101: "Single Phase Inverter",
		102: "Split Phase Inverter",
		103: "Three Phase Inverter",
		201: "Single Phase Meter",
		202: "Split Phase Meter",
		203: "Three Phase Wye Meter",
		204: "Three Phase Delta Meter",
	},
	"b_status": {
		0: "Off",
		1: "Standby",
		2: "Init",
		3: "Charge",
		4: "Discharge",
		5: "Fault",
		6: "Preserve Charge",
		7: "Idle",
		10: "Power Saving",
	},
}
