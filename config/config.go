package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sunspec-monitor/internal/solaredge"
	"sunspec-monitor/internal/sunspec"
)

type Config struct {
	Modbus    ModbusConfig    `mapstructure:"modbus"`
	Devices   []DeviceConfig  `mapstructure:"devices"`
	Collector CollectorConfig `mapstructure:"collector"`
	API       APIConfig       `mapstructure:"api"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
}

type ModbusConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxReadLength int           `mapstructure:"max_read_length"`
}

// DeviceConfig describes one unit behind the gateway. Index selects the
// meter or battery slot.
type DeviceConfig struct {
	Name   string `mapstructure:"name"`
	Kind   string `mapstructure:"kind"`
	UnitID uint8  `mapstructure:"unit_id"`
	Index  int    `mapstructure:"index"`
}

type CollectorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Enabled  bool          `mapstructure:"enabled"`
}

type APIConfig struct {
	Port        int      `mapstructure:"port"`
	Enabled     bool     `mapstructure:"enabled"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	Discovery   bool   `mapstructure:"discovery"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sunspec-monitor")
	}

	v.SetEnvPrefix("SUNSPEC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("modbus.host", "192.168.1.20")
	v.SetDefault("modbus.port", 1502)
	v.SetDefault("modbus.timeout", "10s")
	v.SetDefault("modbus.max_read_length", 120)
	v.SetDefault("devices", []map[string]any{
		{"name": "inverter", "kind": solaredge.KindInverter, "unit_id": 1},
	})
	v.SetDefault("collector.interval", "30s")
	v.SetDefault("collector.enabled", true)
	v.SetDefault("api.port", 8045)
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic_prefix", "sunspec")
	v.SetDefault("mqtt.client_id", "sunspec-monitor")
	v.SetDefault("mqtt.discovery", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.path", "./sunspec.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Modbus.Host == "" {
		errs = append(errs, errors.New("modbus.host is required"))
	}
	if c.Modbus.Port <= 0 || c.Modbus.Port > 65535 {
		errs = append(errs, fmt.Errorf("modbus.port %d out of range", c.Modbus.Port))
	}
	if c.Modbus.Timeout <= 0 {
		errs = append(errs, errors.New("modbus.timeout must be positive"))
	}
	if c.Modbus.MaxReadLength > sunspec.MaxReadLength {
		errs = append(errs, fmt.Errorf("modbus.max_read_length %d exceeds %d", c.Modbus.MaxReadLength, sunspec.MaxReadLength))
	}
	if c.Collector.Interval <= 0 {
		errs = append(errs, errors.New("collector.interval must be positive"))
	}
	if len(c.Devices) == 0 {
		errs = append(errs, errors.New("at least one device is required"))
	}

	names := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if !solaredge.ValidKind(d.Kind) {
			errs = append(errs, fmt.Errorf("devices[%d]: unknown kind %q", i, d.Kind))
			continue
		}
		if slots := solaredge.Slots(d.Kind); d.Index < 0 || d.Index >= slots {
			errs = append(errs, fmt.Errorf("devices[%d]: %s index %d out of range [0, %d)", i, d.Kind, d.Index, slots))
		}
		name := d.Name
		if name == "" {
			name = solaredge.DefaultName(d.Kind, d.UnitID, d.Index)
		}
		if names[name] {
			errs = append(errs, fmt.Errorf("devices[%d]: duplicate name %q", i, name))
		}
		names[name] = true
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
	}
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required when the database is enabled"))
	}

	return errors.Join(errs...)
}
