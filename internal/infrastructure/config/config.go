package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for carrierd.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Carrier    CarrierConfig    `yaml:"carrier"`
	Device     DeviceConfig     `yaml:"device"`
	Limits     LimitsConfig     `yaml:"limits"`
	AppData    AppDataConfig    `yaml:"app_data"`
	Host       HostConfig       `yaml:"host"`
	Database   DatabaseConfig   `yaml:"database"`
	Journal    JournalConfig    `yaml:"journal"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	PowerMeter PowerMeterConfig `yaml:"power_meter"`
	Console    ConsoleConfig    `yaml:"console"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CarrierConfig contains the carrier library init parameters.
type CarrierConfig struct {
	CertificationMode             bool   `yaml:"certification_mode"`
	DisableBootstrapFromSmartcard bool   `yaml:"disable_bootstrap_from_smartcard"`
	IsBootstrapServer             bool   `yaml:"is_bootstrap_server"`
	ServerURI                     string `yaml:"server_uri"`
	ServerLifetime                int32  `yaml:"server_lifetime"`
	SessionIdleTimeout            int32  `yaml:"session_idle_timeout"`
	PSK                           string `yaml:"psk"`
	APN                           string `yaml:"apn"`
	ServiceCode                   string `yaml:"service_code"`

	// PrimaryHostID is the identity of the host application in the
	// Portfolio object.
	PrimaryHostID string `yaml:"primary_host_id"`
}

// DeviceConfig contains the Device object description and initial state.
type DeviceConfig struct {
	Manufacturer    string   `yaml:"manufacturer"`
	ModelNumber     string   `yaml:"model_number"`
	DeviceType      string   `yaml:"device_type"`
	HardwareVersion string   `yaml:"hardware_version"`
	SoftwareVersion string   `yaml:"software_version"`
	PowerSources    []string `yaml:"power_sources"`
	MemoryTotalKB   uint32   `yaml:"memory_total_kb"`
	Timezone        string   `yaml:"timezone"`
	UTCOffset       int      `yaml:"utc_offset"`
}

// LimitsConfig sizes the in-memory stores.
type LimitsConfig struct {
	MaxPowerSources       int   `yaml:"max_power_sources"`
	MaxPortfolioInstances int   `yaml:"max_portfolio_instances"`
	MaxIdentityLength     int   `yaml:"max_identity_length"`
	HeapBytes             int64 `yaml:"heap_bytes"`
	EventQueueSize        int   `yaml:"event_queue_size"`
}

// AppDataConfig contains App Data Container settings.
type AppDataConfig struct {
	Enabled bool `yaml:"enabled"`
}

// HostConfig contains host application behaviour.
type HostConfig struct {
	// RebootDelay is how long the host waits before restarting after a
	// REBOOT event it takes over.
	RebootDelay time.Duration `yaml:"reboot_delay"`

	// TakeOverReboot makes the host handle REBOOT itself.
	TakeOverReboot bool `yaml:"take_over_reboot"`

	// Link is the network daemon supervised while the LTE link is up.
	Link LinkConfig `yaml:"link"`
}

// LinkConfig describes the link daemon. An empty Command disables it.
type LinkConfig struct {
	Command         string        `yaml:"command"`
	Args            []string      `yaml:"args"`
	RestartDelay    time.Duration `yaml:"restart_delay"`
	MaxRestarts     int           `yaml:"max_restarts"`
	GracefulTimeout time.Duration `yaml:"graceful_timeout"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// JournalConfig contains event journal settings.
type JournalConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Retention time.Duration `yaml:"retention"`
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

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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

// TelemetryConfig contains resource sampling settings.
type TelemetryConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// PowerMeterConfig contains Modbus power meter settings.
type PowerMeterConfig struct {
	Enabled  bool                      `yaml:"enabled"`
	Address  string                    `yaml:"address"`
	UnitID   byte                      `yaml:"unit_id"`
	Timeout  time.Duration             `yaml:"timeout"`
	Interval time.Duration             `yaml:"interval"`
	Channels []PowerMeterChannelConfig `yaml:"channels"`
}

// PowerMeterChannelConfig maps a power source to its meter registers.
type PowerMeterChannelConfig struct {
	Source          string `yaml:"source"`
	VoltageRegister uint16 `yaml:"voltage_register"`
	CurrentRegister uint16 `yaml:"current_register"`
}

// ConsoleConfig contains interactive console settings.
type ConsoleConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Prompt      string `yaml:"prompt"`
	HistoryFile string `yaml:"history_file"`

	// LogFile receives the logs while the console owns the terminal.
	// Empty sends them to stderr.
	LogFile string `yaml:"log_file"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CARRIER_SECTION_KEY
// For example: CARRIER_DATABASE_PATH, CARRIER_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Carrier: CarrierConfig{
			ServerLifetime:     86400,
			SessionIdleTimeout: 60,
			PrimaryHostID:      "carrierd",
		},
		Device: DeviceConfig{
			PowerSources: []string{"dc"},
			Timezone:     "Etc/UTC",
		},
		Limits: LimitsConfig{
			MaxPowerSources:       8,
			MaxPortfolioInstances: 4,
			MaxIdentityLength:     128,
			HeapBytes:             64 * 1024,
			EventQueueSize:        32,
		},
		AppData: AppDataConfig{
			Enabled: true,
		},
		Host: HostConfig{
			RebootDelay: 5 * time.Second,
			Link: LinkConfig{
				RestartDelay:    5 * time.Second,
				MaxRestarts:     10,
				GracefulTimeout: 10 * time.Second,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/carrier.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Journal: JournalConfig{
			Enabled:   true,
			Retention: 7 * 24 * time.Hour,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "carrierd",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Telemetry: TelemetryConfig{
			Interval: time.Minute,
		},
		PowerMeter: PowerMeterConfig{
			UnitID:   1,
			Timeout:  2 * time.Second,
			Interval: 10 * time.Second,
		},
		Console: ConsoleConfig{
			Prompt: "carrier> ",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CARRIER_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// Carrier
	if v := os.Getenv("CARRIER_SERVER_URI"); v != "" {
		cfg.Carrier.ServerURI = v
	}
	if v := os.Getenv("CARRIER_PSK"); v != "" {
		cfg.Carrier.PSK = v
	}
	if v := os.Getenv("CARRIER_APN"); v != "" {
		cfg.Carrier.APN = v
	}
	if v := os.Getenv("CARRIER_CERTIFICATION_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CARRIER_CERTIFICATION_MODE: %w", err)
		}
		cfg.Carrier.CertificationMode = b
	}

	// Database
	if v := os.Getenv("CARRIER_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("CARRIER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CARRIER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CARRIER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("CARRIER_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("CARRIER_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CARRIER_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}

	// InfluxDB
	if v := os.Getenv("CARRIER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Power meter
	if v := os.Getenv("CARRIER_POWER_METER_ADDRESS"); v != "" {
		cfg.PowerMeter.Address = v
	}

	// Logging
	if v := os.Getenv("CARRIER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return nil
}

// Validate checks the configuration for errors.
// Carrier init parameter limits are checked by the carrier package.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Carrier.PrimaryHostID == "" {
		errs = append(errs, "carrier.primary_host_id is required")
	}

	if c.Limits.HeapBytes < 0 {
		errs = append(errs, "limits.heap_bytes must not be negative")
	}
	if c.Limits.MaxPowerSources < 1 {
		errs = append(errs, "limits.max_power_sources must be at least 1")
	}
	if c.Limits.MaxPortfolioInstances < 1 {
		errs = append(errs, "limits.max_portfolio_instances must be at least 1")
	}

	if c.Host.RebootDelay < 0 {
		errs = append(errs, "host.reboot_delay must not be negative")
	}
	if c.Host.Link.Command != "" && c.Host.Link.MaxRestarts < 0 {
		errs = append(errs, "host.link.max_restarts must not be negative")
	}

	if c.Database.Path == "" && c.Journal.Enabled {
		errs = append(errs, "database.path is required when journal is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Telemetry.Enabled && c.Telemetry.Interval <= 0 {
		errs = append(errs, "telemetry.interval must be positive")
	}

	if c.PowerMeter.Enabled {
		if c.PowerMeter.Address == "" {
			errs = append(errs, "power_meter.address is required when power_meter is enabled")
		}
		if c.PowerMeter.Interval <= 0 {
			errs = append(errs, "power_meter.interval must be positive")
		}
		if len(c.PowerMeter.Channels) == 0 {
			errs = append(errs, "power_meter.channels must not be empty")
		}
		for i, ch := range c.PowerMeter.Channels {
			if ch.Source == "" {
				errs = append(errs, fmt.Sprintf("power_meter.channels[%d].source is required", i))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReadTimeout returns the read timeout as a Duration.
func (c APIConfig) ReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// WriteTimeout returns the write timeout as a Duration.
func (c APIConfig) WriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// IdleTimeout returns the idle timeout as a Duration.
func (c APIConfig) IdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}
