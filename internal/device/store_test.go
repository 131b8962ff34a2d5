package device

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/nerrad567/carrier-core/internal/lwm2m"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(Info{Manufacturer: "Acme", ModelNumber: "M1"}, 0)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestNewStore_Defaults(t *testing.T) {
	s := newTestStore(t)

	if s.Capacity() != DefaultMaxPowerSources {
		t.Errorf("Capacity() = %d, want %d", s.Capacity(), DefaultMaxPowerSources)
	}
	if got := s.Battery(); got.Level != 0 || got.Status != BatteryStatusUnknown {
		t.Errorf("Battery() = %+v, want level 0 status unknown", got)
	}
	if got := s.ErrorCodes(); !slices.Equal(got, []ErrorCode{ErrorCodeNoError}) {
		t.Errorf("ErrorCodes() = %v, want [no_error]", got)
	}
	if got := s.MemoryFree(); got != 0 {
		t.Errorf("MemoryFree() = %d, want 0", got)
	}
}

func TestNewStore_InfoTooLong(t *testing.T) {
	long := "0123456789012345678901234567890123"
	_, err := NewStore(Info{ModelNumber: long}, 0)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("NewStore() error = %v, want ErrOutOfRange", err)
	}
}

func TestSetAvailablePowerSources(t *testing.T) {
	tests := []struct {
		name    string
		sources []PowerSource
		wantErr error
	}{
		{"empty", nil, nil},
		{"single", []PowerSource{PowerSourceDC}, nil},
		{"all", AllPowerSources(), nil},
		{"unknown", []PowerSource{PowerSourceDC, 3}, ErrInvalidSource},
		{"duplicate", []PowerSource{PowerSourceUSB, PowerSourceUSB}, ErrInvalidSource},
		{"too many", []PowerSource{0, 1, 2, 4, 5, 6, 7, 0, 1}, ErrTooManySources},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			err := s.SetAvailablePowerSources(tt.sources)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got := s.PowerSources(); len(got) != len(tt.sources) {
				t.Errorf("len(PowerSources()) = %d, want %d", len(got), len(tt.sources))
			}
		})
	}
}

func TestSetAvailablePowerSources_TooManyIsCapacityKind(t *testing.T) {
	s, err := NewStore(Info{}, 2)
	if err != nil {
		t.Fatal(err)
	}

	// Length is checked before membership.
	err = s.SetAvailablePowerSources([]PowerSource{9, 9, 9})
	if !errors.Is(err, ErrTooManySources) {
		t.Fatalf("error = %v, want ErrTooManySources", err)
	}
	if !errors.Is(err, lwm2m.ErrCapacityExceeded) {
		t.Error("ErrTooManySources should match lwm2m.ErrCapacityExceeded")
	}
}

func TestMeasurements_RequireActiveSource(t *testing.T) {
	s := newTestStore(t)
	active := []PowerSource{PowerSourceDC, PowerSourceSolar}
	if err := s.SetAvailablePowerSources(active); err != nil {
		t.Fatal(err)
	}

	for _, p := range AllPowerSources() {
		errV := s.SetVoltage(p, 3300)
		errC := s.SetCurrent(p, 120)
		if slices.Contains(active, p) {
			if errV != nil || errC != nil {
				t.Errorf("%s: SetVoltage/SetCurrent errors = %v, %v", p, errV, errC)
			}
			continue
		}
		if !errors.Is(errV, ErrSourceNotActive) || !errors.Is(errC, ErrSourceNotActive) {
			t.Errorf("%s: errors = %v, %v, want ErrSourceNotActive", p, errV, errC)
		}
	}

	if err := s.SetVoltage(3, 1); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("SetVoltage(3) error = %v, want ErrInvalidSource", err)
	}

	snap := s.Snapshot()
	dc, ok := snap.Source(PowerSourceDC)
	if !ok {
		t.Fatal("DC missing from snapshot")
	}
	if dc.Voltage != (Measurement{Value: 3300, Set: true}) || dc.Current != (Measurement{Value: 120, Set: true}) {
		t.Errorf("DC = %+v", dc)
	}
}

func TestSetAvailablePowerSources_ResetsMeasurements(t *testing.T) {
	s := newTestStore(t)
	sources := []PowerSource{PowerSourceDC, PowerSourceInternalBattery}
	if err := s.SetAvailablePowerSources(sources); err != nil {
		t.Fatal(err)
	}
	if err := s.SetVoltage(PowerSourceDC, 5000); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBatteryLevel(75); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBatteryStatus(BatteryStatusCharging); err != nil {
		t.Fatal(err)
	}

	// Same set again still resets.
	if err := s.SetAvailablePowerSources(sources); err != nil {
		t.Fatal(err)
	}

	for _, st := range s.PowerSources() {
		if st.Voltage.Set || st.Current.Set || st.Voltage.Value != 0 {
			t.Errorf("%s not reset: %+v", st.Source, st)
		}
	}
	if got := s.Battery(); got != (Battery{Level: 0, Status: BatteryStatusUnknown}) {
		t.Errorf("Battery() = %+v, want reset", got)
	}
}

func TestBattery(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetBatteryLevel(50); !errors.Is(err, ErrSourceNotActive) {
		t.Errorf("SetBatteryLevel without battery error = %v, want ErrSourceNotActive", err)
	}
	if err := s.SetBatteryStatus(BatteryStatusNormal); !errors.Is(err, ErrSourceNotActive) {
		t.Errorf("SetBatteryStatus without battery error = %v, want ErrSourceNotActive", err)
	}

	if err := s.SetAvailablePowerSources([]PowerSource{PowerSourceInternalBattery}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		pct     int
		wantErr error
	}{
		{0, nil},
		{100, nil},
		{-1, ErrOutOfRange},
		{101, ErrOutOfRange},
	}
	for _, tt := range tests {
		err := s.SetBatteryLevel(tt.pct)
		if !errors.Is(err, tt.wantErr) && !(err == nil && tt.wantErr == nil) {
			t.Errorf("SetBatteryLevel(%d) error = %v, want %v", tt.pct, err, tt.wantErr)
		}
	}

	if err := s.SetBatteryStatus(7); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("SetBatteryStatus(7) error = %v, want ErrInvalidStatus", err)
	}
	if err := s.SetBatteryStatus(BatteryStatusLowBattery); err != nil {
		t.Fatal(err)
	}
	if got := s.Battery(); got != (Battery{Level: 100, Status: BatteryStatusLowBattery}) {
		t.Errorf("Battery() = %+v", got)
	}
}

func TestErrorCodes(t *testing.T) {
	s := newTestStore(t)

	steps := []struct {
		op   string
		code ErrorCode
		want []ErrorCode
	}{
		{"add", ErrorCodeLowSignal, []ErrorCode{ErrorCodeLowSignal}},
		{"add", ErrorCodeGPSFailure, []ErrorCode{ErrorCodeLowSignal, ErrorCodeGPSFailure}},
		{"add", ErrorCodeLowSignal, []ErrorCode{ErrorCodeLowSignal, ErrorCodeGPSFailure}},
		{"remove", ErrorCodeLowSignal, []ErrorCode{ErrorCodeGPSFailure}},
		{"add", ErrorCodeOutOfMemory, []ErrorCode{ErrorCodeGPSFailure, ErrorCodeOutOfMemory}},
		{"add", ErrorCodeNoError, []ErrorCode{ErrorCodeNoError}},
		{"add", ErrorCodeSMSFailure, []ErrorCode{ErrorCodeSMSFailure}},
		{"remove", ErrorCodeSMSFailure, []ErrorCode{ErrorCodeNoError}},
	}

	for i, step := range steps {
		var err error
		if step.op == "add" {
			err = s.AddError(step.code)
		} else {
			err = s.RemoveError(step.code)
		}
		if err != nil {
			t.Fatalf("step %d %s(%s) error = %v", i, step.op, step.code, err)
		}
		if got := s.ErrorCodes(); !slices.Equal(got, step.want) {
			t.Fatalf("step %d ErrorCodes() = %v, want %v", i, got, step.want)
		}
	}
}

func TestErrorCodes_Failures(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddError(9); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("AddError(9) error = %v, want ErrInvalidCode", err)
	}
	if err := s.RemoveError(9); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("RemoveError(9) error = %v, want ErrInvalidCode", err)
	}
	if err := s.RemoveError(ErrorCodeNoError); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("RemoveError(NO_ERROR) error = %v, want ErrInvalidCode", err)
	}
	err := s.RemoveError(ErrorCodeLowCharge)
	if !errors.Is(err, ErrNotPresent) {
		t.Errorf("RemoveError(absent) error = %v, want ErrNotPresent", err)
	}
	if !errors.Is(err, lwm2m.ErrNotFound) {
		t.Error("ErrNotPresent should match lwm2m.ErrNotFound")
	}
}

func TestMemory(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetMemoryTotal(1 << 31); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetMemoryTotal(2^31) error = %v, want ErrOutOfRange", err)
	}
	if err := s.SetMemoryTotal(256); err != nil {
		t.Fatal(err)
	}
	if s.MemoryTotal() != 256 {
		t.Errorf("MemoryTotal() = %d, want 256", s.MemoryTotal())
	}

	s.SetMemoryFreeFunc(func() int32 { return 42 })
	if s.MemoryFree() != 42 {
		t.Errorf("MemoryFree() = %d, want 42", s.MemoryFree())
	}
	if snap := s.Snapshot(); snap.MemoryFree != 42 || snap.MemoryTotal != 256 {
		t.Errorf("Snapshot memory = %d/%d", snap.MemoryFree, snap.MemoryTotal)
	}

	s.SetMemoryFreeFunc(nil)
	if s.MemoryFree() != 0 {
		t.Errorf("MemoryFree() after reset = %d, want 0", s.MemoryFree())
	}
}

func TestSnapshot_IsIndependent(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetAvailablePowerSources([]PowerSource{PowerSourceAC}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddError(ErrorCodeLowSignal); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	snap.Sources[0].Source = PowerSourceSolar
	snap.ErrorCodes[0] = ErrorCodeGPSFailure

	again := s.Snapshot()
	if again.Sources[0].Source != PowerSourceAC {
		t.Error("snapshot mutation leaked into store sources")
	}
	if again.ErrorCodes[0] != ErrorCodeLowSignal {
		t.Error("snapshot mutation leaked into store error codes")
	}
}

func TestStore_ConcurrentRedeclareAndWrite(t *testing.T) {
	s := newTestStore(t)
	sources := []PowerSource{PowerSourceDC, PowerSourceInternalBattery}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.SetAvailablePowerSources(sources)
		}()
		go func(v int32) {
			defer wg.Done()
			err := s.SetVoltage(PowerSourceDC, v)
			if err != nil && !errors.Is(err, ErrSourceNotActive) {
				t.Errorf("SetVoltage() error = %v", err)
			}
		}(int32(i))
	}
	wg.Wait()

	if got := len(s.PowerSources()); got != 2 {
		t.Errorf("len(PowerSources()) = %d, want 2", got)
	}
}
