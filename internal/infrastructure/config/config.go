package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the mesh supervisor.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Serial    SerialConfig    `yaml:"serial"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	History   HistoryConfig   `yaml:"history"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DeviceConfig identifies this supervisor node.
type DeviceConfig struct {
	NodeID string `yaml:"node_id"`
}

// SerialConfig contains the command/telemetry transport settings.
type SerialConfig struct {
	// Device is the serial port path. The special value "stdio" binds the
	// protocol to the process's stdin/stdout instead of a port.
	Device        string `yaml:"device"`
	Baud          int    `yaml:"baud"`
	PollTimeoutMS int    `yaml:"poll_timeout_ms"`
}

// TelemetryConfig contains the unsolicited telemetry publisher settings.
type TelemetryConfig struct {
	PeriodMS int `yaml:"period_ms"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// HistoryConfig contains telemetry history retention settings.
type HistoryConfig struct {
	RetentionHours int `yaml:"retention_hours"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SUPERVISOR_SECTION_KEY
// For example: SUPERVISOR_SERIAL_DEVICE, SUPERVISOR_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			NodeID: "supervisor-001",
		},
		Serial: SerialConfig{
			Device:        "/dev/ttyUSB0",
			Baud:          115200,
			PollTimeoutMS: 100,
		},
		Telemetry: TelemetryConfig{
			PeriodMS: 2000,
		},
		Database: DatabaseConfig{
			Enabled:     false,
			Path:        "./data/supervisor.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "mesh-supervisor",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		History: HistoryConfig{
			RetentionHours: 168,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SUPERVISOR_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("SUPERVISOR_DEVICE_NODE_ID"); v != "" {
		cfg.Device.NodeID = v
	}

	// Serial
	if v := os.Getenv("SUPERVISOR_SERIAL_DEVICE"); v != "" {
		cfg.Serial.Device = v
	}
	if v := os.Getenv("SUPERVISOR_SERIAL_BAUD"); v != "" {
		if baud, err := strconv.Atoi(v); err == nil {
			cfg.Serial.Baud = baud
		}
	}

	// Database
	if v := os.Getenv("SUPERVISOR_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("SUPERVISOR_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SUPERVISOR_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SUPERVISOR_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("SUPERVISOR_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Device validation
	if c.Device.NodeID == "" {
		errs = append(errs, "device.node_id is required")
	}

	// Serial validation
	if c.Serial.Device == "" {
		errs = append(errs, "serial.device is required")
	}
	if c.Serial.Device != "stdio" && c.Serial.Baud <= 0 {
		errs = append(errs, "serial.baud must be positive")
	}
	if c.Serial.PollTimeoutMS <= 0 {
		errs = append(errs, "serial.poll_timeout_ms must be positive")
	}

	// Telemetry validation
	if c.Telemetry.PeriodMS <= 0 {
		errs = append(errs, "telemetry.period_ms must be positive")
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database.enabled")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt.enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb.enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb.enabled (set SUPERVISOR_INFLUXDB_TOKEN environment variable)")
		}
	}

	// History validation
	if c.History.RetentionHours < 0 {
		errs = append(errs, "history.retention_hours must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetTelemetryPeriod returns the telemetry publish period as a Duration.
func (c *Config) GetTelemetryPeriod() time.Duration {
	return time.Duration(c.Telemetry.PeriodMS) * time.Millisecond
}

// GetSerialPollTimeout returns the serial read poll timeout as a Duration.
func (c *Config) GetSerialPollTimeout() time.Duration {
	return time.Duration(c.Serial.PollTimeoutMS) * time.Millisecond
}

// GetHistoryRetention returns the telemetry history retention window as a Duration.
func (c *Config) GetHistoryRetention() time.Duration {
	return time.Duration(c.History.RetentionHours) * time.Hour
}
