package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/carrier-core/internal/carrier"
	"github.com/nerrad567/carrier-core/internal/device"
	"github.com/nerrad567/carrier-core/internal/location"
)

type fakeSink struct {
	mu     sync.Mutex
	points []*write.Point
}

func (s *fakeSink) WritePoint(p *write.Point) {
	s.mu.Lock()
	s.points = append(s.points, p)
	s.mu.Unlock()
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points)
}

func newRegistry(t *testing.T) *carrier.Registry {
	t.Helper()
	reg, err := carrier.New(carrier.Config{
		PrimaryHostID: "tracker",
		PowerSources:  []device.PowerSource{device.PowerSourceInternalBattery, device.PowerSourceUSB},
		MemoryTotalKB: 128,
		Limits:        carrier.Limits{HeapBytes: 1024},
	}, nil)
	require.NoError(t, err)
	return reg
}

func fields(p *write.Point) map[string]any {
	out := map[string]any{}
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func tags(p *write.Point) map[string]string {
	out := map[string]string{}
	for _, tag := range p.TagList() {
		out[tag.Key] = tag.Value
	}
	return out
}

func byName(points []*write.Point) map[string][]*write.Point {
	out := map[string][]*write.Point{}
	for _, p := range points {
		out[p.Name()] = append(out[p.Name()], p)
	}
	return out
}

func TestPoints_DeviceOnly(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Device().SetVoltage(device.PowerSourceUSB, 5000))
	require.NoError(t, reg.Device().SetBatteryLevel(80))
	require.NoError(t, reg.Device().SetBatteryStatus(device.BatteryStatusCharging))

	s := NewSampler(reg, &fakeSink{}, time.Minute, map[string]string{"client_id": "tracker-01"})
	at := time.Unix(1700000000, 0)
	got := byName(s.Points(reg.Snapshot(), at))

	// Only USB has a measurement.
	require.Len(t, got[MeasurementPowerSource], 1)
	usb := got[MeasurementPowerSource][0]
	assert.Equal(t, "usb", tags(usb)["source"])
	assert.Equal(t, "tracker-01", tags(usb)["client_id"])
	assert.Equal(t, map[string]any{"voltage_mv": int64(5000)}, fields(usb))
	assert.Equal(t, at, usb.Time())

	require.Len(t, got[MeasurementBattery], 1)
	assert.Equal(t, "charging", tags(got[MeasurementBattery][0])["status"])
	assert.Equal(t, int64(80), fields(got[MeasurementBattery][0])["level"])

	require.Len(t, got[MeasurementMemory], 1)
	assert.Equal(t, uint64(128), fields(got[MeasurementMemory][0])["total_kb"])

	assert.Empty(t, got[MeasurementLocation])
	assert.Empty(t, got[MeasurementVelocity])
	assert.Len(t, got[MeasurementSession], 1)
	assert.Equal(t, "uninit", tags(got[MeasurementSession][0])["state"])
	assert.Len(t, got[MeasurementHeap], 1)
}

func TestPoints_LocationAndVelocity(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Location().SetLocation(59.91, 10.75, 12.5, 1000, 3))
	require.NoError(t, reg.Location().SetVelocity(90, 1.5, location.Absent, 0.5, location.Absent))

	s := NewSampler(reg, &fakeSink{}, time.Minute, nil)
	got := byName(s.Points(reg.Snapshot(), time.Now()))

	require.Len(t, got[MeasurementLocation], 1)
	loc := fields(got[MeasurementLocation][0])
	assert.InDelta(t, 59.91, loc["latitude"], 1e-9)
	assert.Equal(t, uint64(1000), loc["fix_time"])

	require.Len(t, got[MeasurementVelocity], 1)
	vel := fields(got[MeasurementVelocity][0])
	assert.Equal(t, int64(90), vel["heading"])
	assert.Contains(t, vel, "uncertainty_h")
	assert.NotContains(t, vel, "speed_v")
	assert.NotContains(t, vel, "uncertainty_v")
}

func TestSample_WritesToSink(t *testing.T) {
	reg := newRegistry(t)
	sink := &fakeSink{}
	s := NewSampler(reg, sink, time.Minute, nil)

	n := s.Sample()
	assert.Positive(t, n)
	assert.Equal(t, n, sink.count())
}

func TestRun_SamplesUntilCancelled(t *testing.T) {
	reg := newRegistry(t)
	sink := &fakeSink{}
	s := NewSampler(reg, sink, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return sink.count() > 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
