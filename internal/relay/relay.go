// Package relay mirrors carrier events to MQTT and feeds MQTT uplink
// payloads into the App Data outbox.
//
// Event publishing is decoupled from dispatch: ObserveEvent only encodes
// and queues, and Run publishes. A full queue drops the message with a
// warning rather than stalling the dispatcher.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/nerrad567/carrier-core/internal/appdata"
	"github.com/nerrad567/carrier-core/internal/event"
	"github.com/nerrad567/carrier-core/internal/infrastructure/mqtt"
)

// DefaultBacklog is the publish queue capacity when none is given.
const DefaultBacklog = 64

// Logger defines the logging interface used by the relay.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Broker is the subset of *mqtt.Client the relay uses.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Stats counts relay traffic since start.
type Stats struct {
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
	Uplinks   uint64 `json:"uplinks"`
	Rejected  uint64 `json:"rejected"`
}

// SentAck is published on the appdata/sent topic after an uplink is
// accepted into the outbox.
type SentAck struct {
	Bytes int `json:"bytes"`
}

type message struct {
	topic    string
	payload  []byte
	retained bool
}

// Relay bridges the dispatcher and the outbox to an MQTT broker.
type Relay struct {
	broker Broker
	topics mqtt.Topics
	qos    byte
	outbox *appdata.Outbox
	queue  chan message
	logger Logger

	published atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
	uplinks   atomic.Uint64
	rejected  atomic.Uint64
}

// New creates a relay.
//
// Parameters:
//   - broker: Connected MQTT client
//   - topics: Topic builder for this carrier's client ID
//   - qos: QoS for published messages
//   - outbox: Destination for uplink payloads (nil disables uplink)
//   - backlog: Publish queue capacity (DefaultBacklog if <= 0)
func New(broker Broker, topics mqtt.Topics, qos byte, outbox *appdata.Outbox, backlog int) *Relay {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Relay{
		broker: broker,
		topics: topics,
		qos:    qos,
		outbox: outbox,
		queue:  make(chan message, backlog),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the relay.
func (r *Relay) SetLogger(logger Logger) {
	r.logger = logger
}

// Start subscribes to the uplink topic. It must be called after the
// broker connection is up; the subscription survives reconnects.
func (r *Relay) Start() error {
	if r.outbox == nil {
		return nil
	}
	if err := r.broker.Subscribe(r.topics.AppDataUplink(), r.qos, r.HandleUplink); err != nil {
		return fmt.Errorf("subscribing to uplink: %w", err)
	}
	r.logger.Info("relay uplink subscribed", "topic", r.topics.AppDataUplink())
	return nil
}

// ObserveEvent implements event.Observer. It queues the delivery on the
// event topic and the resulting session status on the retained session
// topic.
func (r *Relay) ObserveEvent(_ context.Context, d event.Delivery) {
	eventJSON, err := json.Marshal(d)
	if err != nil {
		r.logger.Error("encoding event for relay", "event", d.Event.Kind.String(), "error", err)
		return
	}
	sessionJSON, err := json.Marshal(d.Status)
	if err != nil {
		r.logger.Error("encoding session for relay", "error", err)
		return
	}

	r.enqueue(message{topic: r.topics.Event(d.Event.Kind.String()), payload: eventJSON})
	r.enqueue(message{topic: r.topics.Session(), payload: sessionJSON, retained: true})
}

func (r *Relay) enqueue(m message) {
	select {
	case r.queue <- m:
	default:
		r.dropped.Add(1)
		r.logger.Warn("relay backlog full, dropping message", "topic", m.topic)
	}
}

// Run publishes queued messages until ctx is cancelled. Messages still
// queued at cancellation are published before Run returns.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case m := <-r.queue:
			r.publish(m)
		case <-ctx.Done():
			for {
				select {
				case m := <-r.queue:
					r.publish(m)
				default:
					return nil
				}
			}
		}
	}
}

func (r *Relay) publish(m message) {
	if err := r.broker.Publish(m.topic, m.payload, r.qos, m.retained); err != nil {
		r.failed.Add(1)
		r.logger.Warn("relay publish failed", "topic", m.topic, "error", err)
		return
	}
	r.published.Add(1)
}

// HandleUplink is the MQTT handler for the uplink topic. The payload is
// copied into the outbox; an accepted payload is acknowledged on the
// appdata/sent topic.
func (r *Relay) HandleUplink(_ string, payload []byte) error {
	if payload == nil {
		payload = []byte{}
	}
	if err := r.outbox.Send(payload); err != nil {
		r.rejected.Add(1)
		return fmt.Errorf("relay uplink: %w", err)
	}
	r.uplinks.Add(1)

	ack, _ := json.Marshal(SentAck{Bytes: len(payload)}) //nolint:errcheck // Fixed struct always marshals
	r.enqueue(message{topic: r.topics.AppDataSent(), payload: ack})
	return nil
}

// Stats returns the relay counters.
func (r *Relay) Stats() Stats {
	return Stats{
		Published: r.published.Load(),
		Failed:    r.failed.Load(),
		Dropped:   r.dropped.Load(),
		Uplinks:   r.uplinks.Load(),
		Rejected:  r.rejected.Load(),
	}
}
