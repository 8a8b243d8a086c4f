package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"sunspec-monitor/internal/sunspec"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "data", "sunspec.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveSnapshot(t *testing.T) {
	db := openTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	err := db.SaveSnapshot(DeviceState{Name: "inverter", Kind: "inverter", UnitID: 1, Populated: 2, Expected: 3, UpdatedAt: now}, []sunspec.Reading{
		{Key: "i_ac_power", Label: "AC Power", Units: "W", Value: sunspec.FloatValue(150), Display: "150 W"},
		{Key: "i_status", Label: "Status", Value: sunspec.UintValue(4), Text: "Producing", Display: "Producing"},
		{Key: "i_dc_power", Label: "DC Power", Units: "W", Display: "N/A"},
	})
	require.NoError(t, err)

	state, err := db.Device("inverter")
	require.NoError(t, err)
	assert.Equal(t, 2, state.Populated)
	assert.Equal(t, uint8(1), state.UnitID)

	rows, err := db.Readings("inverter")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "i_ac_power", rows[0].Key)
	assert.True(t, sunspec.FloatValue(150).Equal(rows[0].Reading().Value))
	assert.Equal(t, "Producing", rows[1].Reading().Text)
}

func TestSaveSnapshotOverwrites(t *testing.T) {
	db := openTestDB(t)
	state := DeviceState{Name: "meter", Kind: "meter", UnitID: 1, UpdatedAt: time.Now()}

	require.NoError(t, db.SaveSnapshot(state, []sunspec.Reading{
		{Key: "m_ac_power", Label: "AC Real Power", Units: "W", Value: sunspec.IntValue(-420), Display: "-420 W"},
		{Key: "m_ac_freq", Label: "AC Frequency", Units: "Hz", Value: sunspec.FloatValue(50), Display: "50 Hz"},
	}))

	state.Populated = 1
	require.NoError(t, db.SaveSnapshot(state, []sunspec.Reading{
		{Key: "m_ac_power", Label: "AC Real Power", Units: "W", Value: sunspec.IntValue(310), Display: "310 W"},
		{Key: "m_ac_freq", Label: "AC Frequency", Units: "Hz", Display: "N/A"},
	}))

	rows, err := db.Readings("meter")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "310 W", rows[0].Display)

	states, err := db.Devices()
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, 1, states[0].Populated)
}

func TestDeviceNotFound(t *testing.T) {
	_, err := openTestDB(t).Device("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPrune(t *testing.T) {
	db := openTestDB(t)
	old := time.Now().Add(-2 * time.Hour)

	require.NoError(t, db.SaveSnapshot(DeviceState{Name: "gone", UpdatedAt: old}, []sunspec.Reading{
		{Key: "k", Value: sunspec.IntValue(1), Display: "1"},
	}))
	require.NoError(t, db.SaveSnapshot(DeviceState{Name: "live", UpdatedAt: time.Now()}, []sunspec.Reading{
		{Key: "k", Value: sunspec.IntValue(2), Display: "2"},
	}))

	require.NoError(t, db.Prune(time.Hour))

	states, err := db.Devices()
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "live", states[0].Name)

	rows, err := db.Readings("gone")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
