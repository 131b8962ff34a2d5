package device

import (
	"fmt"
	"slices"
)

// PowerSource identifies an available power source on the device.
// Numeric values match the LwM2M Device object enumeration.
type PowerSource uint8

// Power source constants. Value 3 is not used by the carrier.
const (
	PowerSourceDC              PowerSource = 0
	PowerSourceInternalBattery PowerSource = 1
	PowerSourceExternalBattery PowerSource = 2
	PowerSourceEthernet        PowerSource = 4
	PowerSourceUSB             PowerSource = 5
	PowerSourceAC              PowerSource = 6
	PowerSourceSolar           PowerSource = 7
)

var powerSourceNames = map[PowerSource]string{
	PowerSourceDC:              "dc",
	PowerSourceInternalBattery: "internal_battery",
	PowerSourceExternalBattery: "external_battery",
	PowerSourceEthernet:        "ethernet",
	PowerSourceUSB:             "usb",
	PowerSourceAC:              "ac",
	PowerSourceSolar:           "solar",
}

// AllPowerSources returns all recognised power sources.
func AllPowerSources() []PowerSource {
	return []PowerSource{
		PowerSourceDC, PowerSourceInternalBattery, PowerSourceExternalBattery,
		PowerSourceEthernet, PowerSourceUSB, PowerSourceAC, PowerSourceSolar,
	}
}

func (p PowerSource) String() string {
	if name, ok := powerSourceNames[p]; ok {
		return name
	}
	return fmt.Sprintf("power_source(%d)", uint8(p))
}

// ParsePowerSource converts a name such as "internal_battery" to a PowerSource.
func ParsePowerSource(name string) (PowerSource, error) {
	for p, n := range powerSourceNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSource, name)
}

// ErrorCode is a device error code as reported in the Device object.
type ErrorCode uint8

// Error code constants.
const (
	ErrorCodeNoError               ErrorCode = 0
	ErrorCodeLowCharge             ErrorCode = 1
	ErrorCodeExternalSupplyOff     ErrorCode = 2
	ErrorCodeGPSFailure            ErrorCode = 3
	ErrorCodeLowSignal             ErrorCode = 4
	ErrorCodeOutOfMemory           ErrorCode = 5
	ErrorCodeSMSFailure            ErrorCode = 6
	ErrorCodeIPConnectivityFailure ErrorCode = 7
	ErrorCodePeripheralMalfunction ErrorCode = 8
)

var errorCodeNames = []string{
	"no_error", "low_charge", "external_supply_off", "gps_failure", "low_signal",
	"out_of_memory", "sms_failure", "ip_connectivity_failure", "peripheral_malfunction",
}

// AllErrorCodes returns all recognised error codes.
func AllErrorCodes() []ErrorCode {
	codes := make([]ErrorCode, len(errorCodeNames))
	for i := range codes {
		codes[i] = ErrorCode(i)
	}
	return codes
}

// ParseErrorCode converts a name such as "low_signal" to an ErrorCode.
func ParseErrorCode(name string) (ErrorCode, error) {
	for i, n := range errorCodeNames {
		if n == name {
			return ErrorCode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCode, name)
}

func (c ErrorCode) String() string {
	if int(c) < len(errorCodeNames) {
		return errorCodeNames[c]
	}
	return fmt.Sprintf("error_code(%d)", uint8(c))
}

// BatteryStatus is the state of the internal battery.
type BatteryStatus uint8

// Battery status constants.
const (
	BatteryStatusNormal         BatteryStatus = 0
	BatteryStatusCharging       BatteryStatus = 1
	BatteryStatusChargeComplete BatteryStatus = 2
	BatteryStatusDamaged        BatteryStatus = 3
	BatteryStatusLowBattery     BatteryStatus = 4
	BatteryStatusNotInstalled   BatteryStatus = 5
	BatteryStatusUnknown        BatteryStatus = 6
)

var batteryStatusNames = []string{
	"normal", "charging", "charge_complete", "damaged", "low_battery", "not_installed", "unknown",
}

// AllBatteryStatuses returns all recognised battery statuses.
func AllBatteryStatuses() []BatteryStatus {
	statuses := make([]BatteryStatus, len(batteryStatusNames))
	for i := range statuses {
		statuses[i] = BatteryStatus(i)
	}
	return statuses
}

// ParseBatteryStatus converts a name such as "charging" to a BatteryStatus.
func ParseBatteryStatus(name string) (BatteryStatus, error) {
	for i, n := range batteryStatusNames {
		if n == name {
			return BatteryStatus(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, name)
}

func (s BatteryStatus) String() string {
	if int(s) < len(batteryStatusNames) {
		return batteryStatusNames[s]
	}
	return fmt.Sprintf("battery_status(%d)", uint8(s))
}

// Measurement is an optional int32 reading. Set is false until written.
type Measurement struct {
	Value int32 `json:"value"`
	Set   bool  `json:"set"`
}

// SourceState is one entry of the active power source set.
type SourceState struct {
	Source  PowerSource `json:"source"`
	Voltage Measurement `json:"voltage_mv"`
	Current Measurement `json:"current_ma"`
}

// Battery holds the internal battery readings.
type Battery struct {
	Level  int           `json:"level"`
	Status BatteryStatus `json:"status"`
}

// Info is the static device description supplied at construction.
type Info struct {
	Manufacturer    string `json:"manufacturer"`
	ModelNumber     string `json:"model_number"`
	DeviceType      string `json:"device_type"`
	HardwareVersion string `json:"hardware_version"`
	SoftwareVersion string `json:"software_version"`
}

// Snapshot is a point-in-time copy of the device resources.
type Snapshot struct {
	Info        Info          `json:"info"`
	Sources     []SourceState `json:"power_sources"`
	Battery     Battery       `json:"battery"`
	ErrorCodes  []ErrorCode   `json:"error_codes"`
	MemoryTotal uint32        `json:"memory_total_kb"`
	MemoryFree  int32         `json:"memory_free_kb"`
}

// DeepCopy returns an independent copy of the snapshot.
func (s *Snapshot) DeepCopy() *Snapshot {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Sources = slices.Clone(s.Sources)
	cp.ErrorCodes = slices.Clone(s.ErrorCodes)
	return &cp
}

// Source returns the entry for p, if active.
func (s *Snapshot) Source(p PowerSource) (SourceState, bool) {
	for _, st := range s.Sources {
		if st.Source == p {
			return st, true
		}
	}
	return SourceState{}, false
}
