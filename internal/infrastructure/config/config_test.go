package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
carrier:
  server_uri: "coaps://lwm2m.example.net:5684"
  psk: "0a1b2c3d"
  apn: "iot.example"
  primary_host_id: "tracker"
device:
  manufacturer: "Acme"
  model_number: "T-100"
  power_sources: ["internal_battery", "usb"]
  memory_total_kb: 512
  timezone: "Europe/London"
  utc_offset: 60
database:
  path: "/tmp/carrier.db"
telemetry:
  enabled: true
  interval: 30s
power_meter:
  enabled: true
  address: "meter.local:502"
  interval: 5s
  channels:
    - source: "usb"
      voltage_register: 0
      current_register: 6
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Carrier.ServerURI != "coaps://lwm2m.example.net:5684" {
		t.Errorf("Carrier.ServerURI = %q", cfg.Carrier.ServerURI)
	}
	if cfg.Carrier.PrimaryHostID != "tracker" {
		t.Errorf("Carrier.PrimaryHostID = %q, want %q", cfg.Carrier.PrimaryHostID, "tracker")
	}
	if len(cfg.Device.PowerSources) != 2 || cfg.Device.PowerSources[1] != "usb" {
		t.Errorf("Device.PowerSources = %v", cfg.Device.PowerSources)
	}
	if cfg.Device.UTCOffset != 60 {
		t.Errorf("Device.UTCOffset = %d, want 60", cfg.Device.UTCOffset)
	}
	if cfg.Telemetry.Interval != 30*time.Second {
		t.Errorf("Telemetry.Interval = %v, want 30s", cfg.Telemetry.Interval)
	}
	if len(cfg.PowerMeter.Channels) != 1 || cfg.PowerMeter.Channels[0].CurrentRegister != 6 {
		t.Errorf("PowerMeter.Channels = %+v", cfg.PowerMeter.Channels)
	}

	// Defaults survive for unset sections.
	if cfg.Limits.MaxPowerSources != 8 {
		t.Errorf("Limits.MaxPowerSources = %d, want 8", cfg.Limits.MaxPowerSources)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
carrier:
  primary_host_id: ""
`)

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected validation error for empty primary_host_id, got nil")
	}
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	path := writeConfig(t, "carrier:\n  primary_host_id: \"x\"\n")
	t.Setenv("CARRIER_API_PORT", "not-a-port")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for bad CARRIER_API_PORT, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing primary host",
			mutate:  func(c *Config) { c.Carrier.PrimaryHostID = "" },
			wantErr: "primary_host_id",
		},
		{
			name:    "negative heap",
			mutate:  func(c *Config) { c.Limits.HeapBytes = -1 },
			wantErr: "heap_bytes",
		},
		{
			name:    "no power source slots",
			mutate:  func(c *Config) { c.Limits.MaxPowerSources = 0 },
			wantErr: "max_power_sources",
		},
		{
			name:    "negative reboot delay",
			mutate:  func(c *Config) { c.Host.RebootDelay = -time.Second },
			wantErr: "reboot_delay",
		},
		{
			name: "negative link restarts",
			mutate: func(c *Config) {
				c.Host.Link.Command = "/usr/sbin/pppd"
				c.Host.Link.MaxRestarts = -1
			},
			wantErr: "host.link.max_restarts",
		},
		{
			name:    "journal without database",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "journal disabled without database",
			mutate:  func(c *Config) { c.Database.Path = ""; c.Journal.Enabled = false },
			wantErr: "",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "api disabled ignores port",
			mutate:  func(c *Config) { c.API.Enabled = false; c.API.Port = 0 },
			wantErr: "",
		},
		{
			name:    "influx without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name:    "telemetry zero interval",
			mutate:  func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.Interval = 0 },
			wantErr: "telemetry.interval",
		},
		{
			name: "power meter without channels",
			mutate: func(c *Config) {
				c.PowerMeter.Enabled = true
				c.PowerMeter.Address = "meter:502"
			},
			wantErr: "power_meter.channels",
		},
		{
			name: "power meter channel without source",
			mutate: func(c *Config) {
				c.PowerMeter.Enabled = true
				c.PowerMeter.Address = "meter:502"
				c.PowerMeter.Channels = []PowerMeterChannelConfig{{VoltageRegister: 1}}
			},
			wantErr: "channels[0].source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Carrier.PrimaryHostID = ""
	cfg.MQTT.QoS = 5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	if !strings.HasPrefix(err.Error(), "configuration errors: ") {
		t.Errorf("error = %q, want configuration errors prefix", err)
	}
	if strings.Count(err.Error(), ";") != 1 {
		t.Errorf("error = %q, want two joined failures", err)
	}
}

func TestAPIConfig_Timeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.API.ReadTimeout().Seconds(); got != 30 {
		t.Errorf("API.ReadTimeout() = %v, want 30", got)
	}

	if got := cfg.API.WriteTimeout().Seconds(); got != 45 {
		t.Errorf("API.WriteTimeout() = %v, want 45", got)
	}

	if got := cfg.API.IdleTimeout().Seconds(); got != 60 {
		t.Errorf("API.IdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("CARRIER_SERVER_URI", "coap://override:5683")
	t.Setenv("CARRIER_PSK", "deadbeef")
	t.Setenv("CARRIER_CERTIFICATION_MODE", "true")
	t.Setenv("CARRIER_DATABASE_PATH", "/custom/path.db")
	t.Setenv("CARRIER_MQTT_HOST", "mqtt.example.com")
	t.Setenv("CARRIER_MQTT_USERNAME", "testuser")
	t.Setenv("CARRIER_MQTT_PASSWORD", "testpass")
	t.Setenv("CARRIER_API_HOST", "192.168.1.1")
	t.Setenv("CARRIER_API_PORT", "9090")
	t.Setenv("CARRIER_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("CARRIER_POWER_METER_ADDRESS", "10.0.0.5:502")
	t.Setenv("CARRIER_LOG_LEVEL", "debug")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Carrier.ServerURI != "coap://override:5683" {
		t.Errorf("Carrier.ServerURI = %q", cfg.Carrier.ServerURI)
	}
	if cfg.Carrier.PSK != "deadbeef" {
		t.Errorf("Carrier.PSK = %q", cfg.Carrier.PSK)
	}
	if !cfg.Carrier.CertificationMode {
		t.Error("Carrier.CertificationMode = false, want true")
	}
	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" || cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth = %+v", cfg.MQTT.Auth)
	}
	if cfg.API.Host != "192.168.1.1" || cfg.API.Port != 9090 {
		t.Errorf("API = %s:%d", cfg.API.Host, cfg.API.Port)
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.PowerMeter.Address != "10.0.0.5:502" {
		t.Errorf("PowerMeter.Address = %q", cfg.PowerMeter.Address)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestApplyEnvOverrides_BadBool(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("CARRIER_CERTIFICATION_MODE", "maybe")

	if err := applyEnvOverrides(cfg); err == nil {
		t.Error("applyEnvOverrides() expected error for bad bool, got nil")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Carrier.PrimaryHostID == "" {
		t.Error("defaultConfig should have non-empty Carrier.PrimaryHostID")
	}
	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}
	if cfg.Limits.EventQueueSize != 32 {
		t.Errorf("defaultConfig Limits.EventQueueSize = %d, want 32", cfg.Limits.EventQueueSize)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
	if !cfg.AppData.Enabled {
		t.Error("defaultConfig should enable app data")
	}
}
