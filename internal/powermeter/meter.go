// Package powermeter polls a Modbus TCP power meter and writes the
// readings into the Device object's voltage and current resources.
//
// Each channel maps one power source to two holding-register pairs. A
// pair holds a big-endian signed 32-bit value in mV or mA. A poll cycle
// is all-or-nothing: if any read fails nothing is written.
package powermeter

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/goburrow/modbus"

	"github.com/nerrad567/carrier-core/internal/device"
)

// registersPerValue is the number of 16-bit registers holding one int32.
const registersPerValue = 2

var (
	// ErrNoChannels is returned by New when no channel is configured.
	ErrNoChannels = errors.New("powermeter: at least one channel required")

	// ErrInvalidInterval is returned by New for a non-positive interval.
	ErrInvalidInterval = errors.New("powermeter: interval must be > 0")

	// ErrShortRead is returned when the meter answers with too few bytes.
	ErrShortRead = errors.New("powermeter: short register read")
)

// Reader is the Modbus operation the poller needs. modbus.Client satisfies it.
type Reader interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
}

// Sink receives readings. *device.Store satisfies it.
type Sink interface {
	SetVoltage(p device.PowerSource, mV int32) error
	SetCurrent(p device.PowerSource, mA int32) error
}

// Logger defines the logging interface used by the Poller.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Channel maps a power source to its meter registers.
type Channel struct {
	Source          device.PowerSource
	VoltageRegister uint16
	CurrentRegister uint16
}

// Reading is one channel's values from a poll cycle.
type Reading struct {
	Source    device.PowerSource
	VoltageMV int32
	CurrentMA int32
}

// Poller reads every channel on a fixed interval.
type Poller struct {
	reader   Reader
	sink     Sink
	channels []Channel
	interval time.Duration
	logger   Logger
}

// New creates a poller.
func New(reader Reader, sink Sink, channels []Channel, interval time.Duration) (*Poller, error) {
	if len(channels) == 0 {
		return nil, ErrNoChannels
	}
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	return &Poller{
		reader:   reader,
		sink:     sink,
		channels: append([]Channel(nil), channels...),
		interval: interval,
		logger:   noopLogger{},
	}, nil
}

// SetLogger sets the logger for the poller.
func (p *Poller) SetLogger(logger Logger) {
	p.logger = logger
}

// PollOnce reads every channel and, if all reads succeed, writes the
// readings to the sink. A sink error for one source (for example a
// source that is no longer active) is logged and does not stop the rest.
func (p *Poller) PollOnce() ([]Reading, error) {
	readings := make([]Reading, 0, len(p.channels))
	for _, ch := range p.channels {
		voltage, err := p.readInt32(ch.VoltageRegister)
		if err != nil {
			return nil, fmt.Errorf("reading %s voltage: %w", ch.Source, err)
		}
		current, err := p.readInt32(ch.CurrentRegister)
		if err != nil {
			return nil, fmt.Errorf("reading %s current: %w", ch.Source, err)
		}
		readings = append(readings, Reading{Source: ch.Source, VoltageMV: voltage, CurrentMA: current})
	}

	for _, r := range readings {
		if err := p.sink.SetVoltage(r.Source, r.VoltageMV); err != nil {
			p.logger.Warn("power meter voltage rejected", "source", r.Source.String(), "error", err)
			continue
		}
		if err := p.sink.SetCurrent(r.Source, r.CurrentMA); err != nil {
			p.logger.Warn("power meter current rejected", "source", r.Source.String(), "error", err)
		}
	}
	return readings, nil
}

func (p *Poller) readInt32(register uint16) (int32, error) {
	data, err := p.reader.ReadHoldingRegisters(register, registersPerValue)
	if err != nil {
		return 0, err
	}
	if len(data) < 2*registersPerValue {
		return 0, fmt.Errorf("%w: got %d bytes", ErrShortRead, len(data))
	}
	return int32(binary.BigEndian.Uint32(data)), nil //nolint:gosec // Register pair is a signed value
}

// Run polls every interval until ctx is cancelled. No overlap, no retries.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			readings, err := p.PollOnce()
			if err != nil {
				p.logger.Warn("power meter poll failed", "error", err)
				continue
			}
			p.logger.Debug("power meter polled", "channels", len(readings))
		}
	}
}

// Conn is a Modbus TCP connection to a meter.
type Conn struct {
	modbus.Client
	handler *modbus.TCPClientHandler
}

// Dial connects to the meter at address (host:port) using unitID.
func Dial(address string, unitID byte, timeout time.Duration) (*Conn, error) {
	if address == "" {
		return nil, errors.New("powermeter: address required")
	}

	h := modbus.NewTCPClientHandler(address)
	h.Timeout = timeout
	h.SlaveId = unitID

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("powermeter: connecting to %s: %w", address, err)
	}
	return &Conn{Client: modbus.NewClient(h), handler: h}, nil
}

// Close closes the TCP connection.
func (c *Conn) Close() error {
	return c.handler.Close()
}
