package carrier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/carrier-core/internal/device"
	"github.com/nerrad567/carrier-core/internal/event"
	"github.com/nerrad567/carrier-core/internal/lwm2m"
	"github.com/nerrad567/carrier-core/internal/portfolio"
)

func testConfig() Config {
	return Config{
		ServerURI:      "coaps://lwm2m.example.net:5684",
		ServerLifetime: 86400,
		PSK:            "000102030405060708090a0b0c0d0e0f",
		APN:            "iot.example",
		Device: device.Info{
			Manufacturer:    "Acme",
			ModelNumber:     "T-100",
			SoftwareVersion: "1.0.0",
		},
		PrimaryHostID:  "tracker-app",
		PowerSources:   []device.PowerSource{device.PowerSourceDC, device.PowerSourceInternalBattery},
		MemoryTotalKB:  256,
		Timezone:       "Europe/Oslo",
		UTCOffset:      60,
		AppDataEnabled: true,
		Limits:         Limits{HeapBytes: 4096},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"long uri", func(c *Config) { c.ServerURI = strings.Repeat("u", 256) }, "server_uri"},
		{"bootstrap without uri", func(c *Config) { c.ServerURI = ""; c.IsBootstrapServer = true }, "is_bootstrap_server"},
		{"psk not hex", func(c *Config) { c.PSK = "xyz" }, "psk must be hexadecimal"},
		{"psk too long", func(c *Config) { c.PSK = strings.Repeat("a", 65) }, "psk exceeds"},
		{"apn too long", func(c *Config) { c.APN = strings.Repeat("a", 64) }, "apn"},
		{"service code", func(c *Config) { c.ServiceCode = "123456" }, "service_code"},
		{"model too long", func(c *Config) { c.Device.ModelNumber = strings.Repeat("m", 33) }, "model_number"},
		{"no primary host", func(c *Config) { c.PrimaryHostID = "" }, "primary_host_id"},
		{"negative lifetime", func(c *Config) { c.ServerLifetime = -1 }, "server_lifetime"},
		{"apn control char", func(c *Config) { c.APN = "iot\x00example" }, "apn contains control characters"},
		{"host id newline", func(c *Config) { c.PrimaryHostID = "tracker\napp" }, "primary_host_id contains control characters"},
		{"timezone control char", func(c *Config) { c.Timezone = "Europe/Oslo\x7f" }, "timezone contains control characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !IsInvalidConfig(err) || !errors.Is(err, lwm2m.ErrInvalidArgument) {
				t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateCollectsAll(t *testing.T) {
	cfg := testConfig()
	cfg.APN = strings.Repeat("a", 64)
	cfg.ServiceCode = "toolong"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "apn") || !strings.Contains(err.Error(), "service_code") {
		t.Fatalf("Validate() error = %v, want both problems", err)
	}
}

func TestNew(t *testing.T) {
	reg, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	sources := reg.Device().PowerSources()
	if len(sources) != 2 || sources[1].Source != device.PowerSourceInternalBattery {
		t.Errorf("PowerSources() = %+v", sources)
	}
	if reg.Device().MemoryTotal() != 256 {
		t.Errorf("MemoryTotal() = %d", reg.Device().MemoryTotal())
	}
	if tz := reg.Device().Clock().Timezone(); tz != "Europe/Oslo" {
		t.Errorf("Timezone() = %q", tz)
	}

	id, err := reg.Portfolio().Identity(portfolio.PrimaryHostID, portfolio.IdentityID)
	if err != nil || id != "tracker-app" {
		t.Errorf("primary host id = %q, %v", id, err)
	}
	inst, _ := reg.Portfolio().Instance(portfolio.PrimaryHostID)
	if _, ok := inst.Identities[portfolio.IdentityManufacturer]; !ok {
		t.Error("manufacturer not seeded")
	}
	if len(inst.Identities) != 4 {
		t.Errorf("identities = %v, want 4 (hardware version unset)", inst.Identities)
	}

	if !reg.Outbox().Provisioned() {
		t.Error("outbox not provisioned")
	}
	if reg.Budget().Used() == 0 {
		t.Error("identity storage not reserved from budget")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.PSK = "not-hex"
	if _, err := New(cfg, nil); !IsInvalidConfig(err) {
		t.Fatalf("New() error = %v, want ErrInvalidConfig", err)
	}

	cfg = testConfig()
	cfg.PowerSources = []device.PowerSource{device.PowerSourceUSB, device.PowerSourceUSB}
	if _, err := New(cfg, nil); !IsInvalidConfig(err) {
		t.Fatalf("New() duplicate sources error = %v, want ErrInvalidConfig", err)
	}
}

func TestRegistries_AreIndependent(t *testing.T) {
	a, err := New(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := a.Device().AddError(device.ErrorCodeLowSignal); err != nil {
		t.Fatal(err)
	}
	if got := b.Device().ErrorCodes(); len(got) != 1 || got[0] != device.ErrorCodeNoError {
		t.Errorf("second registry saw first registry's errors: %v", got)
	}
}

func TestSnapshot(t *testing.T) {
	reg, err := New(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := reg.Location().SetLocation(63.4, 10.4, 12, 1000, 5); err != nil {
		t.Fatal(err)
	}
	if err := reg.Outbox().Send([]byte("up")); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Dispatcher().Dispatch(context.Background(), event.New(event.KindInit)); err != nil {
		t.Fatal(err)
	}

	snap := reg.Snapshot()
	if snap.Location == nil || snap.Location.Timestamp != 1000 {
		t.Errorf("Location = %+v", snap.Location)
	}
	if snap.Velocity != nil {
		t.Error("Velocity set without write")
	}
	if !snap.AppData {
		t.Error("AppData pending = false")
	}
	if snap.Session.State != event.StateInitialized {
		t.Errorf("Session.State = %s", snap.Session.State)
	}
	if snap.Heap.Capacity != 4096 || snap.Heap.Used == 0 {
		t.Errorf("Heap = %+v", snap.Heap)
	}
	if snap.Time.UTCOffset != 60 {
		t.Errorf("Time = %+v", snap.Time)
	}
}
