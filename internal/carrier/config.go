package carrier

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/carrier-core/internal/device"
	"github.com/nerrad567/carrier-core/internal/lwm2m"
)

// ErrInvalidConfig is returned by New when the init parameters are invalid.
var ErrInvalidConfig = lwm2m.NewError(lwm2m.ErrInvalidArgument, "carrier: invalid configuration")

// Init parameter limits.
const (
	MaxServerURILength   = 255
	MaxPSKLength         = 64
	MaxAPNLength         = 63
	MaxServiceCodeLength = 5
)

// Limits sizes the in-memory stores.
type Limits struct {
	MaxPowerSources       int
	MaxPortfolioInstances int
	MaxIdentityLength     int

	// HeapBytes bounds identity values, app data and the velocity vector.
	// Zero means unbounded.
	HeapBytes int64

	EventQueueSize int
}

// Config holds the carrier init parameters and the initial device state.
type Config struct {
	CertificationMode             bool
	DisableBootstrapFromSmartcard bool
	IsBootstrapServer             bool
	ServerURI                     string

	// ServerLifetime is in seconds and only used for an LwM2M Server.
	ServerLifetime int32

	// SessionIdleTimeout is the DTLS session idle timeout in seconds.
	SessionIdleTimeout int32

	// PSK is up to 64 hexadecimal digits.
	PSK string

	APN         string
	ServiceCode string

	Device device.Info

	// PrimaryHostID is the ID identity of Portfolio instance 0.
	PrimaryHostID string

	PowerSources  []device.PowerSource
	MemoryTotalKB uint32
	Timezone      string
	UTCOffset     int

	AppDataEnabled bool

	Limits Limits
}

// Validate checks the init parameters. All problems are reported at once.
func (c Config) Validate() error {
	var errs []string

	if !lwm2m.MaxLen(c.ServerURI, MaxServerURILength) {
		errs = append(errs, fmt.Sprintf("server_uri exceeds %d characters", MaxServerURILength))
	}
	if c.IsBootstrapServer && c.ServerURI == "" {
		errs = append(errs, "is_bootstrap_server requires server_uri")
	}
	if c.ServerLifetime < 0 {
		errs = append(errs, "server_lifetime must not be negative")
	}
	if c.SessionIdleTimeout < 0 {
		errs = append(errs, "session_idle_timeout must not be negative")
	}
	if !lwm2m.MaxLen(c.PSK, MaxPSKLength) {
		errs = append(errs, fmt.Sprintf("psk exceeds %d hex digits", MaxPSKLength))
	}
	if !lwm2m.IsHex(c.PSK) {
		errs = append(errs, "psk must be hexadecimal")
	}
	if !lwm2m.MaxLen(c.APN, MaxAPNLength) {
		errs = append(errs, fmt.Sprintf("apn exceeds %d characters", MaxAPNLength))
	}
	if !lwm2m.MaxLen(c.ServiceCode, MaxServiceCodeLength) {
		errs = append(errs, fmt.Sprintf("service_code exceeds %d characters", MaxServiceCodeLength))
	}
	if err := device.ValidateInfo(c.Device); err != nil {
		errs = append(errs, err.Error())
	}
	if c.PrimaryHostID == "" {
		errs = append(errs, "primary_host_id is required")
	}
	for _, f := range []struct{ name, value string }{
		{"server_uri", c.ServerURI},
		{"apn", c.APN},
		{"service_code", c.ServiceCode},
		{"primary_host_id", c.PrimaryHostID},
		{"timezone", c.Timezone},
	} {
		if !lwm2m.Printable(f.value) {
			errs = append(errs, f.name+" contains control characters")
		}
	}
	if err := device.ValidateMemoryTotal(c.MemoryTotalKB); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// IsInvalidConfig reports whether err came from Config.Validate.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
