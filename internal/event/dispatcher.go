package event

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Dispatcher.
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

// RebootDecision is the host's answer to a REBOOT event.
type RebootDecision uint8

const (
	// ProceedAutonomously lets the runtime carry out the reboot.
	ProceedAutonomously RebootDecision = iota
	// HostIntervenes means the host takes over the reboot.
	HostIntervenes
)

func (d RebootDecision) String() string {
	if d == HostIntervenes {
		return "host_intervenes"
	}
	return "proceed_autonomously"
}

// MarshalText implements encoding.TextMarshaler.
func (d RebootDecision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Handler receives every dispatched event. The return value is only
// consulted for REBOOT.
//
// Payload memory is valid only until HandleEvent returns.
type Handler interface {
	HandleEvent(ctx context.Context, e Event) RebootDecision
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, e Event) RebootDecision

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(ctx context.Context, e Event) RebootDecision {
	return f(ctx, e)
}

// Delivery describes an event after the host handler returned.
type Delivery struct {
	ID       string         `json:"id"`
	Event    Event          `json:"event"`
	Decision RebootDecision `json:"decision"`
	Expected bool           `json:"expected"`
	Status   Status         `json:"status"`
	At       time.Time      `json:"at"`
}

// Observer is notified of every delivery after the handler, in dispatch
// order. Observers run inside the dispatch and must not keep the payload.
type Observer interface {
	ObserveEvent(ctx context.Context, d Delivery)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, d Delivery)

// ObserveEvent implements Observer.
func (f ObserverFunc) ObserveEvent(ctx context.Context, d Delivery) {
	f(ctx, d)
}

// Rebooter performs the reboot when the host lets the runtime proceed.
type Rebooter interface {
	Reboot(ctx context.Context) error
}

// RebootFunc adapts a function to the Rebooter interface.
type RebootFunc func(ctx context.Context) error

// Reboot implements Rebooter.
func (f RebootFunc) Reboot(ctx context.Context) error {
	return f(ctx)
}

// DefaultQueueSize is the Post queue capacity when none is given.
const DefaultQueueSize = 32

// Dispatcher delivers events to the host one at a time.
//
// Dispatch is synchronous: it returns after the handler and every
// observer have returned, and concurrent callers wait their turn. Post
// queues an event for Run, which feeds the same serialized path.
//
// All public methods are thread-safe.
type Dispatcher struct {
	mu        sync.Mutex    // serializes deliveries
	owner     atomic.Uint64 // goroutine holding mu, 0 when idle
	handler   Handler
	session   *Session
	queue     chan Event
	now       func() time.Time
	logger    Logger
	obsMu     sync.RWMutex
	observers []Observer
	rebooter  Rebooter
}

// NewDispatcher creates a dispatcher for handler.
//
// Parameters:
//   - handler: Host callback; nil installs one that lets reboots proceed
//   - queueSize: Capacity of the Post queue (DefaultQueueSize if <= 0)
//
// Returns:
//   - *Dispatcher: Dispatcher with a fresh session in StateUninit
func NewDispatcher(handler Handler, queueSize int) *Dispatcher {
	if handler == nil {
		handler = HandlerFunc(func(context.Context, Event) RebootDecision {
			return ProceedAutonomously
		})
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		handler: handler,
		session: NewSession(),
		queue:   make(chan Event, queueSize),
		now:     time.Now,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// SetRebooter installs the action taken when a REBOOT proceeds
// autonomously.
func (d *Dispatcher) SetRebooter(r Rebooter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rebooter = r
}

// AddObserver registers an observer. Observers are called in the order
// they were added.
func (d *Dispatcher) AddObserver(o Observer) {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	d.observers = append(d.observers, o)
}

// Status returns the session status.
func (d *Dispatcher) Status() Status {
	return d.session.Status()
}

// Dispatch validates e, delivers it to the handler, updates the session
// and hands the resulting Delivery to every observer.
//
// The engine must raise INIT first: before it only INIT and ERROR are
// delivered, and other kinds return ErrNotInitialized without reaching
// the handler or being queued. Events that are unexpected in the current
// state are still delivered and logged.
//
// For REBOOT the handler's decision is returned. When it is
// ProceedAutonomously the installed Rebooter runs after the observers.
//
// A handler, observer or Rebooter that calls Dispatch gets
// ErrReentrantDispatch whatever context it passes; it may call Post.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) (RebootDecision, error) {
	gid := goroutineID()
	if d.owner.Load() == gid {
		return ProceedAutonomously, ErrReentrantDispatch
	}
	if err := e.Validate(); err != nil {
		return ProceedAutonomously, err
	}
	return d.deliver(ctx, e.clone(), gid)
}

func (d *Dispatcher) deliver(ctx context.Context, e Event, gid uint64) (RebootDecision, error) {
	d.mu.Lock()
	d.owner.Store(gid)
	defer func() {
		d.owner.Store(0)
		d.mu.Unlock()
	}()

	before := d.session.Status()
	if err := Admit(before.State, e.Kind); err != nil {
		d.logger.Warn("event rejected", "event", e.Kind.String(), "state", before.State.String())
		return ProceedAutonomously, err
	}

	decision, handlerErr := d.callHandler(ctx, e)
	if e.Kind != KindReboot {
		decision = ProceedAutonomously
	}

	status, expected := d.session.Apply(e, d.now())
	if !expected {
		d.logger.Warn("unexpected event for session state",
			"event", e.Kind.String(),
			"state", before.State.String(),
		)
	}
	d.logger.Debug("event dispatched", "event", e.String(), "state", status.State.String())

	delivery := Delivery{
		ID:       uuid.NewString(),
		Event:    e,
		Decision: decision,
		Expected: expected,
		Status:   status,
		At:       status.UpdatedAt,
	}

	d.obsMu.RLock()
	observers := d.observers
	d.obsMu.RUnlock()
	for _, o := range observers {
		d.callObserver(ctx, o, delivery)
	}

	if e.Kind == KindReboot && decision == ProceedAutonomously && d.rebooter != nil {
		d.logger.Info("rebooting", "reason", "host did not intervene")
		if err := d.rebooter.Reboot(ctx); err != nil {
			d.logger.Error("reboot failed", "error", err)
			return decision, fmt.Errorf("event: reboot: %w", err)
		}
	}

	return decision, handlerErr
}

func (d *Dispatcher) callHandler(ctx context.Context, e Event) (decision RebootDecision, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panic", "event", e.Kind.String(), "panic", r)
			decision = ProceedAutonomously
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return d.handler.HandleEvent(ctx, e), nil
}

func (d *Dispatcher) callObserver(ctx context.Context, o Observer, delivery Delivery) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event observer panic", "event", delivery.Event.Kind.String(), "panic", r)
		}
	}()
	o.ObserveEvent(ctx, delivery)
}

// Post queues e for delivery by Run. It never blocks.
// The payload is copied, so the caller may reuse its buffers at once.
func (d *Dispatcher) Post(e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	select {
	case d.queue <- e.clone():
		return nil
	default:
		return fmt.Errorf("%w: %d events waiting", ErrQueueFull, cap(d.queue))
	}
}

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Run delivers queued events in order until ctx is cancelled.
// Delivery errors are logged, not returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("event dispatcher started", "queue_size", cap(d.queue))
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("event dispatcher stopped", "pending", len(d.queue))
			return nil
		case e := <-d.queue:
			if _, err := d.deliver(ctx, e, goroutineID()); err != nil {
				d.logger.Warn("queued event not delivered", "event", e.Kind.String(), "error", err)
			}
		}
	}
}

// goroutineID returns the id of the calling goroutine, parsed from the
// "goroutine N [running]:" header of its stack trace.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	field := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(field, ' '); i >= 0 {
		field = field[:i]
	}
	id, _ := strconv.ParseUint(string(field), 10, 64)
	return id
}
