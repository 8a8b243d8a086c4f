package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"sunspec-monitor/internal/sunspec"
)

// Database keeps the latest snapshot of every device so the API can answer
// before the first collection after a restart. It keeps no history.
type Database struct {
	db *gorm.DB
}

func NewDatabase(path string) (*Database, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&DeviceState{}, &RegisterReading{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

// SaveSnapshot replaces the stored state of one device. Readings without a
// value are removed so the store mirrors the device cache.
func (d *Database) SaveSnapshot(state DeviceState, readings []sunspec.Reading) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&state).Error; err != nil {
			return fmt.Errorf("failed to save device %s: %w", state.Name, err)
		}

		rows := make([]RegisterReading, 0, len(readings))
		var absent []string
		for _, r := range readings {
			if r.Value.IsAbsent() {
				absent = append(absent, r.Key)
				continue
			}
			rows = append(rows, RegisterReading{
				Device:    state.Name,
				Key:       r.Key,
				Label:     r.Label,
				Units:     r.Units,
				Kind:      r.Value.Kind().String(),
				Raw:       r.Value.String(),
				Text:      r.Text,
				Display:   r.Display,
				UpdatedAt: state.UpdatedAt,
			})
		}

		if len(absent) > 0 {
			if err := tx.Where("device = ? AND register_key IN ?", state.Name, absent).Delete(&RegisterReading{}).Error; err != nil {
				return fmt.Errorf("failed to clear readings of %s: %w", state.Name, err)
			}
		}
		if len(rows) == 0 {
			return nil
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device"}, {Name: "register_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"label", "units", "kind", "raw", "text", "display", "updated_at"}),
		}).CreateInBatches(rows, 100).Error
	})
}

func (d *Database) Devices() ([]DeviceState, error) {
	var states []DeviceState
	if err := d.db.Order("name").Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

func (d *Database) Device(name string) (*DeviceState, error) {
	var state DeviceState
	if err := d.db.Where("name = ?", name).First(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

func (d *Database) Readings(device string) ([]RegisterReading, error) {
	var readings []RegisterReading
	result := d.db.Where("device = ?", device).Order("id").Find(&readings)
	if result.Error != nil {
		return nil, result.Error
	}
	return readings, nil
}

// Prune drops devices, and their readings, not updated since olderThan.
// Devices removed from the configuration disappear this way.
func (d *Database) Prune(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("updated_at < ?", cutoff).Delete(&RegisterReading{}).Error; err != nil {
			return err
		}
		return tx.Where("updated_at < ?", cutoff).Delete(&DeviceState{}).Error
	})
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
