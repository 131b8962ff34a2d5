// Package telemetry periodically samples the carrier resources and
// writes them as InfluxDB points.
package telemetry

import (
	"context"
	"math"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/carrier-core/internal/carrier"
)

// Measurement names.
const (
	MeasurementPowerSource = "power_source"
	MeasurementBattery     = "battery"
	MeasurementMemory      = "memory"
	MeasurementLocation    = "location"
	MeasurementVelocity    = "velocity"
	MeasurementSession     = "session"
	MeasurementHeap        = "heap"
)

// Sink receives points. *influxdb.Client satisfies it.
type Sink interface {
	WritePoint(p *write.Point)
}

// Source provides the resources to sample. *carrier.Registry satisfies it.
type Source interface {
	Snapshot() carrier.Snapshot
}

// Logger defines the logging interface used by the Sampler.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Sampler writes one set of points per interval.
type Sampler struct {
	source   Source
	sink     Sink
	interval time.Duration
	tags     map[string]string
	now      func() time.Time
	logger   Logger
}

// NewSampler creates a sampler. tags are added to every point, typically
// the MQTT client ID so several carriers can share a bucket.
func NewSampler(source Source, sink Sink, interval time.Duration, tags map[string]string) *Sampler {
	return &Sampler{
		source:   source,
		sink:     sink,
		interval: interval,
		tags:     tags,
		now:      time.Now,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the sampler.
func (s *Sampler) SetLogger(logger Logger) {
	s.logger = logger
}

// Run samples immediately and then every interval until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sample()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sample()
		}
	}
}

// Sample writes the current snapshot and returns the number of points.
func (s *Sampler) Sample() int {
	points := s.Points(s.source.Snapshot(), s.now())
	for _, p := range points {
		s.sink.WritePoint(p)
	}
	s.logger.Debug("telemetry sampled", "points", len(points))
	return len(points)
}

// Points converts a snapshot into points stamped at.
//
// Power sources without any measurement, an unset location or velocity,
// and absent optional velocity fields produce no point or field.
func (s *Sampler) Points(snap carrier.Snapshot, at time.Time) []*write.Point {
	var points []*write.Point

	if snap.Device != nil {
		for _, src := range snap.Device.Sources {
			fields := map[string]any{}
			if src.Voltage.Set {
				fields["voltage_mv"] = src.Voltage.Value
			}
			if src.Current.Set {
				fields["current_ma"] = src.Current.Value
			}
			if len(fields) == 0 {
				continue
			}
			points = append(points, s.point(MeasurementPowerSource,
				map[string]string{"source": src.Source.String()}, fields, at))
		}

		points = append(points,
			s.point(MeasurementBattery,
				map[string]string{"status": snap.Device.Battery.Status.String()},
				map[string]any{"level": snap.Device.Battery.Level}, at),
			s.point(MeasurementMemory, nil,
				map[string]any{"total_kb": snap.Device.MemoryTotal, "free_kb": snap.Device.MemoryFree}, at),
		)
	}

	if fix := snap.Location; fix != nil {
		points = append(points, s.point(MeasurementLocation, nil, map[string]any{
			"latitude":    fix.Latitude,
			"longitude":   fix.Longitude,
			"altitude":    fix.Altitude,
			"uncertainty": fix.Uncertainty,
			"fix_time":    fix.Timestamp,
		}, at))
	}

	if v := snap.Velocity; v != nil {
		fields := map[string]any{"heading": v.Heading, "speed_h": v.SpeedH}
		addPresent(fields, "speed_v", v.SpeedV)
		addPresent(fields, "uncertainty_h", v.UncertaintyH)
		addPresent(fields, "uncertainty_v", v.UncertaintyV)
		points = append(points, s.point(MeasurementVelocity, nil, fields, at))
	}

	points = append(points,
		s.point(MeasurementSession,
			map[string]string{"state": snap.Session.State.String()},
			map[string]any{"events": snap.Session.Events}, at),
		s.point(MeasurementHeap, nil,
			map[string]any{"used": snap.Heap.Used, "capacity": snap.Heap.Capacity}, at),
	)

	return points
}

func (s *Sampler) point(name string, tags map[string]string, fields map[string]any, at time.Time) *write.Point {
	p := write.NewPoint(name, tags, fields, at)
	for k, v := range s.tags {
		p.AddTag(k, v)
	}
	return p
}

func addPresent(fields map[string]any, key string, v float32) {
	if !math.IsNaN(float64(v)) {
		fields[key] = v
	}
}
