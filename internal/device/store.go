package device

import (
	"fmt"
	"slices"
	"sync"
)

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MemoryFreeFunc reports free memory in kB. The host installs one to
// replace the default, which always reports 0.
type MemoryFreeFunc func() int32

// Store holds the Device object resources: active power sources with
// their measurements, battery, error codes and memory.
//
// Every mutation is validated and applied atomically. Redeclaring the
// active power source set takes the same lock as measurement writes, so
// a writer never observes a half-replaced set.
//
// All public methods are thread-safe.
type Store struct {
	mu          sync.RWMutex
	capacity    int
	info        Info
	sources     []SourceState
	battery     Battery
	errorCodes  []ErrorCode
	memoryTotal uint32
	memoryFree  MemoryFreeFunc
	clock       Clock
	logger      Logger
}

// NewStore creates a device store.
//
// Parameters:
//   - info: Static device description (each field at most 32 characters)
//   - capacity: Maximum active power sources (DefaultMaxPowerSources if <= 0)
//
// Returns:
//   - *Store: Store with no active sources, battery UNKNOWN/0 and no error codes
//   - error: ErrOutOfRange if an Info field is too long
func NewStore(info Info, capacity int) (*Store, error) {
	if err := ValidateInfo(info); err != nil {
		return nil, err
	}
	if capacity <= 0 {
		capacity = DefaultMaxPowerSources
	}
	return &Store{
		capacity: capacity,
		info:     info,
		battery:  Battery{Status: BatteryStatusUnknown},
		clock:    NewSystemClock(),
		logger:   noopLogger{},
	}, nil
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetMemoryFreeFunc installs the host's free memory reader.
// Passing nil restores the default reader.
func (s *Store) SetMemoryFreeFunc(fn MemoryFreeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memoryFree = fn
}

// SetClock replaces the time source used for the time resources.
func (s *Store) SetClock(c Clock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = c
}

// Clock returns the time source.
func (s *Store) Clock() Clock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clock
}

// Capacity returns the maximum number of active power sources.
func (s *Store) Capacity() int {
	return s.capacity
}

// Info returns the static device description.
func (s *Store) Info() Info {
	return s.info
}

// SetAvailablePowerSources replaces the active power source set.
//
// On success every voltage and current measurement is reset to unset and
// the battery is reset to level 0, status UNKNOWN, even when the new set
// equals the old one.
//
// Returns ErrTooManySources if the list exceeds capacity, or
// ErrInvalidSource if an entry is unknown or duplicated.
func (s *Store) SetAvailablePowerSources(sources []PowerSource) error {
	if err := ValidatePowerSources(sources, s.capacity); err != nil {
		return err
	}

	next := make([]SourceState, len(sources))
	for i, p := range sources {
		next[i] = SourceState{Source: p}
	}

	s.mu.Lock()
	s.sources = next
	s.battery = Battery{Status: BatteryStatusUnknown}
	s.mu.Unlock()

	s.logger.Debug("power sources declared", "count", len(sources))
	return nil
}

// SetVoltage records the voltage in mV of an active power source.
func (s *Store) SetVoltage(p PowerSource, mV int32) error {
	return s.setMeasurement(p, func(st *SourceState) {
		st.Voltage = Measurement{Value: mV, Set: true}
	})
}

// SetCurrent records the current in mA of an active power source.
func (s *Store) SetCurrent(p PowerSource, mA int32) error {
	return s.setMeasurement(p, func(st *SourceState) {
		st.Current = Measurement{Value: mA, Set: true}
	})
}

func (s *Store) setMeasurement(p PowerSource, apply func(*SourceState)) error {
	if err := ValidatePowerSource(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(p)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSourceNotActive, p)
	}
	apply(&s.sources[i])
	return nil
}

// SetBatteryLevel records the internal battery level in percent.
// Returns ErrOutOfRange outside 0..100 and ErrSourceNotActive when no
// internal battery is declared.
func (s *Store) SetBatteryLevel(pct int) error {
	if err := ValidateBatteryLevel(pct); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(PowerSourceInternalBattery) < 0 {
		return fmt.Errorf("%w: %s", ErrSourceNotActive, PowerSourceInternalBattery)
	}
	s.battery.Level = pct
	return nil
}

// SetBatteryStatus records the internal battery status.
func (s *Store) SetBatteryStatus(status BatteryStatus) error {
	if err := ValidateBatteryStatus(status); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(PowerSourceInternalBattery) < 0 {
		return fmt.Errorf("%w: %s", ErrSourceNotActive, PowerSourceInternalBattery)
	}
	s.battery.Status = status
	return nil
}

// AddError inserts an error code.
//
// Adding a code that is already set is a no-op. Adding NO_ERROR clears
// every other code.
func (s *Store) AddError(code ErrorCode) error {
	if err := ValidateErrorCode(code); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if code == ErrorCodeNoError {
		s.errorCodes = nil
		return nil
	}
	if slices.Contains(s.errorCodes, code) {
		return nil
	}
	s.errorCodes = append(s.errorCodes, code)
	s.logger.Info("device error raised", "code", code.String())
	return nil
}

// RemoveError deletes an error code.
//
// NO_ERROR cannot be removed and is rejected with ErrInvalidCode. A code
// that is not set returns ErrNotPresent.
func (s *Store) RemoveError(code ErrorCode) error {
	if err := ValidateErrorCode(code); err != nil {
		return err
	}
	if code == ErrorCodeNoError {
		return fmt.Errorf("%w: %s cannot be removed", ErrInvalidCode, code)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.Index(s.errorCodes, code)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotPresent, code)
	}
	s.errorCodes = slices.Delete(s.errorCodes, i, i+1)
	s.logger.Info("device error cleared", "code", code.String())
	return nil
}

// SetMemoryTotal records the total memory in kB.
func (s *Store) SetMemoryTotal(kb uint32) error {
	if err := ValidateMemoryTotal(kb); err != nil {
		return err
	}

	s.mu.Lock()
	s.memoryTotal = kb
	s.mu.Unlock()
	return nil
}

// PowerSources returns a copy of the active set in declaration order.
func (s *Store) PowerSources() []SourceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sources)
}

// Battery returns the internal battery readings.
func (s *Store) Battery() Battery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.battery
}

// ErrorCodes returns the active error codes in insertion order.
// An empty set is reported as a single NO_ERROR.
func (s *Store) ErrorCodes() []ErrorCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorCodesLocked()
}

// MemoryTotal returns the total memory in kB.
func (s *Store) MemoryTotal() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memoryTotal
}

// MemoryFree returns the free memory in kB from the host reader.
func (s *Store) MemoryFree() int32 {
	s.mu.RLock()
	fn := s.memoryFree
	s.mu.RUnlock()

	if fn == nil {
		return 0
	}
	return fn()
}

// Snapshot returns a deep copy of all device resources.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	snap := &Snapshot{
		Info:        s.info,
		Sources:     slices.Clone(s.sources),
		Battery:     s.battery,
		ErrorCodes:  s.errorCodesLocked(),
		MemoryTotal: s.memoryTotal,
	}
	fn := s.memoryFree
	s.mu.RUnlock()

	if fn != nil {
		snap.MemoryFree = fn()
	}
	return snap
}

func (s *Store) errorCodesLocked() []ErrorCode {
	if len(s.errorCodes) == 0 {
		return []ErrorCode{ErrorCodeNoError}
	}
	return slices.Clone(s.errorCodes)
}

func (s *Store) indexLocked(p PowerSource) int {
	for i := range s.sources {
		if s.sources[i].Source == p {
			return i
		}
	}
	return -1
}
