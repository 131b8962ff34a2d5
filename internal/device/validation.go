package device

import (
	"fmt"
	"math"

	"github.com/nerrad567/carrier-core/internal/lwm2m"
)

// Validation constants.
const (
	// DefaultMaxPowerSources is the active set capacity when none is configured.
	DefaultMaxPowerSources = 8

	// MaxInfoLength bounds each Info field.
	MaxInfoLength = 32

	minBatteryLevel = 0
	maxBatteryLevel = 100
)

// Pre-computed validation sets for O(1) lookups.
var (
	validPowerSources    map[PowerSource]struct{}
	validErrorCodes      map[ErrorCode]struct{}
	validBatteryStatuses map[BatteryStatus]struct{}
)

func init() {
	validPowerSources = make(map[PowerSource]struct{}, len(AllPowerSources()))
	for _, p := range AllPowerSources() {
		validPowerSources[p] = struct{}{}
	}

	validErrorCodes = make(map[ErrorCode]struct{}, len(AllErrorCodes()))
	for _, c := range AllErrorCodes() {
		validErrorCodes[c] = struct{}{}
	}

	validBatteryStatuses = make(map[BatteryStatus]struct{}, len(AllBatteryStatuses()))
	for _, s := range AllBatteryStatuses() {
		validBatteryStatuses[s] = struct{}{}
	}
}

// ValidatePowerSource checks that p is a recognised power source.
func ValidatePowerSource(p PowerSource) error {
	if !lwm2m.OneOf(p, validPowerSources) {
		return fmt.Errorf("%w: %d", ErrInvalidSource, uint8(p))
	}
	return nil
}

// ValidatePowerSources checks a full active set declaration.
// Capacity is checked before membership and uniqueness.
func ValidatePowerSources(sources []PowerSource, capacity int) error {
	if len(sources) > capacity {
		return fmt.Errorf("%w: %d declared, max %d", ErrTooManySources, len(sources), capacity)
	}

	seen := make(map[PowerSource]struct{}, len(sources))
	for _, p := range sources {
		if err := ValidatePowerSource(p); err != nil {
			return err
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: %s declared twice", ErrInvalidSource, p)
		}
		seen[p] = struct{}{}
	}
	return nil
}

// ValidateErrorCode checks that c is a recognised error code.
func ValidateErrorCode(c ErrorCode) error {
	if !lwm2m.OneOf(c, validErrorCodes) {
		return fmt.Errorf("%w: %d", ErrInvalidCode, uint8(c))
	}
	return nil
}

// ValidateBatteryStatus checks that s is a recognised battery status.
func ValidateBatteryStatus(s BatteryStatus) error {
	if !lwm2m.OneOf(s, validBatteryStatuses) {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, uint8(s))
	}
	return nil
}

// ValidateBatteryLevel checks a percentage is within 0..100.
func ValidateBatteryLevel(pct int) error {
	if !lwm2m.InRange(int64(pct), minBatteryLevel, maxBatteryLevel) {
		return fmt.Errorf("%w: battery level %d not in %d..%d", ErrOutOfRange, pct, minBatteryLevel, maxBatteryLevel)
	}
	return nil
}

// ValidateMemoryTotal checks the total memory fits the signed 32-bit resource.
func ValidateMemoryTotal(kb uint32) error {
	if kb > math.MaxInt32 {
		return fmt.Errorf("%w: memory total %d exceeds %d", ErrOutOfRange, kb, math.MaxInt32)
	}
	return nil
}

// ValidateInfo checks the static device description field lengths.
func ValidateInfo(info Info) error {
	fields := []struct {
		name  string
		value string
	}{
		{"manufacturer", info.Manufacturer},
		{"model_number", info.ModelNumber},
		{"device_type", info.DeviceType},
		{"hardware_version", info.HardwareVersion},
		{"software_version", info.SoftwareVersion},
	}
	for _, f := range fields {
		if !lwm2m.MaxLen(f.value, MaxInfoLength) {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrOutOfRange, f.name, MaxInfoLength)
		}
	}
	return nil
}
