package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingHandler captures delivered events.
type recordingHandler struct {
	mu       sync.Mutex
	events   []Event
	decision RebootDecision
	inFlight int
	overlap  bool
}

func (h *recordingHandler) HandleEvent(_ context.Context, e Event) RebootDecision {
	h.mu.Lock()
	h.inFlight++
	if h.inFlight > 1 {
		h.overlap = true
	}
	h.events = append(h.events, e)
	h.mu.Unlock()

	time.Sleep(time.Millisecond)

	h.mu.Lock()
	h.inFlight--
	h.mu.Unlock()
	return h.decision
}

func (h *recordingHandler) kinds() []Kind {
	h.mu.Lock()
	defer h.mu.Unlock()
	kinds := make([]Kind, len(h.events))
	for i, e := range h.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func mustDispatch(t *testing.T, d *Dispatcher, e Event) RebootDecision {
	t.Helper()
	decision, err := d.Dispatch(context.Background(), e)
	if err != nil {
		t.Fatalf("Dispatch(%s) error = %v", e, err)
	}
	return decision
}

func TestDispatch_Order(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, 0)

	mustDispatch(t, d, New(KindInit))
	for _, k := range []Kind{KindLinkUp, KindBootstrapped, KindRegistered} {
		mustDispatch(t, d, New(k))
	}

	want := []Kind{KindInit, KindLinkUp, KindBootstrapped, KindRegistered}
	got := h.kinds()
	if len(got) != len(want) {
		t.Fatalf("delivered %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delivered %v, want %v", got, want)
		}
	}
	if st := d.Status(); st.State != StateRegistered {
		t.Errorf("State = %s, want registered", st.State)
	}
}

func TestDispatch_RejectsBeforeInit(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, 0)

	if _, err := d.Dispatch(context.Background(), New(KindRegistered)); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("error = %v, want ErrNotInitialized", err)
	}
	if len(h.kinds()) != 0 {
		t.Error("rejected event reached handler")
	}

	// ERROR is delivered before INIT.
	mustDispatch(t, d, NewError(ErrorConfiguration, 0))
	if st := d.Status(); st.State != StateUninit || st.LastError == nil {
		t.Errorf("status = %+v", st)
	}
}

func TestDispatch_InvalidEvent(t *testing.T) {
	d := NewDispatcher(nil, 0)
	if _, err := d.Dispatch(context.Background(), New(KindDeferred)); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("error = %v, want ErrInvalidEvent", err)
	}
}

func TestDispatch_RebootDecision(t *testing.T) {
	tests := []struct {
		name        string
		decision    RebootDecision
		wantReboots int
	}{
		{"host intervenes", HostIntervenes, 0},
		{"proceed", ProceedAutonomously, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recordingHandler{decision: tt.decision}
			d := NewDispatcher(h, 0)

			reboots := 0
			d.SetRebooter(RebootFunc(func(context.Context) error {
				reboots++
				return nil
			}))

			mustDispatch(t, d, New(KindInit))
			if got := mustDispatch(t, d, New(KindReboot)); got != tt.decision {
				t.Errorf("decision = %s, want %s", got, tt.decision)
			}
			if reboots != tt.wantReboots {
				t.Errorf("reboots = %d, want %d", reboots, tt.wantReboots)
			}
		})
	}
}

func TestDispatch_DecisionIgnoredForOtherKinds(t *testing.T) {
	d := NewDispatcher(&recordingHandler{decision: HostIntervenes}, 0)
	if got := mustDispatch(t, d, New(KindInit)); got != ProceedAutonomously {
		t.Errorf("decision = %s, want proceed_autonomously", got)
	}
}

func TestDispatch_RebootFailure(t *testing.T) {
	d := NewDispatcher(nil, 0)
	boom := errors.New("watchdog busy")
	d.SetRebooter(RebootFunc(func(context.Context) error { return boom }))

	mustDispatch(t, d, New(KindInit))
	if _, err := d.Dispatch(context.Background(), New(KindReboot)); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
}

func TestDispatch_PayloadNotRetained(t *testing.T) {
	var seen []byte
	d := NewDispatcher(HandlerFunc(func(_ context.Context, e Event) RebootDecision {
		seen = e.Payload.(AppData).Data
		return ProceedAutonomously
	}), 0)
	mustDispatch(t, d, New(KindInit))

	buf := []byte("payload")
	mustDispatch(t, d, NewAppData(buf))

	if &seen[0] == &buf[0] {
		t.Fatal("handler received the caller's buffer")
	}
	buf[0] = 'X'
	if string(seen) != "payload" {
		t.Errorf("handler copy changed to %q", seen)
	}
}

func TestDispatch_Observers(t *testing.T) {
	d := NewDispatcher(nil, 0)

	var order []string
	var last Delivery
	d.AddObserver(ObserverFunc(func(_ context.Context, del Delivery) {
		order = append(order, "first:"+del.Event.Kind.String())
		last = del
	}))
	d.AddObserver(ObserverFunc(func(_ context.Context, del Delivery) {
		order = append(order, "second:"+del.Event.Kind.String())
		panic("observer bug")
	}))

	mustDispatch(t, d, New(KindInit))
	mustDispatch(t, d, New(KindRegistered))

	want := []string{"first:init", "second:init", "first:registered", "second:registered"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	if last.ID == "" || last.Status.State != StateRegistered || last.Expected {
		t.Errorf("last delivery = %+v", last)
	}
}

func TestDispatch_HandlerPanic(t *testing.T) {
	d := NewDispatcher(HandlerFunc(func(context.Context, Event) RebootDecision {
		panic("host bug")
	}), 0)

	_, err := d.Dispatch(context.Background(), New(KindInit))
	if !errors.Is(err, ErrHandlerPanic) {
		t.Fatalf("error = %v, want ErrHandlerPanic", err)
	}
	if d.Status().State != StateInitialized {
		t.Error("session not advanced after handler panic")
	}
}

func TestDispatch_Reentrant(t *testing.T) {
	var d *Dispatcher
	var inner error
	d = NewDispatcher(HandlerFunc(func(ctx context.Context, e Event) RebootDecision {
		if e.Kind == KindInit {
			_, inner = d.Dispatch(ctx, New(KindLinkUp))
		}
		return ProceedAutonomously
	}), 0)

	mustDispatch(t, d, New(KindInit))
	if !errors.Is(inner, ErrReentrantDispatch) {
		t.Errorf("inner error = %v, want ErrReentrantDispatch", inner)
	}
}

func TestDispatch_ReentrantFreshContext(t *testing.T) {
	var d *Dispatcher
	inner := make(chan error, 3)
	d = NewDispatcher(HandlerFunc(func(_ context.Context, e Event) RebootDecision {
		if e.Kind == KindInit {
			_, err := d.Dispatch(context.Background(), New(KindLinkUp))
			inner <- err
		}
		return ProceedAutonomously
	}), 0)
	d.AddObserver(ObserverFunc(func(_ context.Context, del Delivery) {
		if del.Event.Kind == KindInit {
			_, err := d.Dispatch(context.Background(), New(KindLinkUp))
			inner <- err
		}
	}))
	d.SetRebooter(RebootFunc(func(context.Context) error {
		_, err := d.Dispatch(context.Background(), New(KindInit))
		inner <- err
		return nil
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = d.Dispatch(context.Background(), New(KindInit))
		_, _ = d.Dispatch(context.Background(), New(KindReboot))
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested Dispatch with a fresh context blocked")
	}

	close(inner)
	n := 0
	for err := range inner {
		n++
		if !errors.Is(err, ErrReentrantDispatch) {
			t.Errorf("nested error = %v, want ErrReentrantDispatch", err)
		}
	}
	if n != 3 {
		t.Errorf("nested calls = %d, want 3", n)
	}

	// The dispatcher is still usable afterwards.
	mustDispatch(t, d, New(KindLinkUp))
}

func TestRun_ReentrantFreshContext(t *testing.T) {
	var d *Dispatcher
	inner := make(chan error, 1)
	d = NewDispatcher(HandlerFunc(func(_ context.Context, e Event) RebootDecision {
		if e.Kind == KindInit {
			_, err := d.Dispatch(context.Background(), New(KindLinkUp))
			inner <- err
		}
		return ProceedAutonomously
	}), 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	if err := d.Post(New(KindInit)); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	select {
	case err := <-inner:
		if !errors.Is(err, ErrReentrantDispatch) {
			t.Errorf("nested error = %v, want ErrReentrantDispatch", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("nested Dispatch from a queued delivery blocked")
	}
}

func TestDispatch_RejectsPointerPayload(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, 0)
	mustDispatch(t, d, New(KindInit))

	buf := []byte{1, 2, 3}
	if _, err := d.Dispatch(context.Background(), Event{Kind: KindAppData, Payload: &AppData{Data: buf}}); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("*AppData error = %v, want ErrInvalidEvent", err)
	}
	if _, err := d.Dispatch(context.Background(), Event{Kind: KindDeferred, Payload: &Deferred{Reason: 200, Timeout: -5}}); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("*Deferred error = %v, want ErrInvalidEvent", err)
	}
	if err := d.Post(Event{Kind: KindError, Payload: &ErrorInfo{Type: ErrorInternal}}); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("Post(*ErrorInfo) error = %v, want ErrInvalidEvent", err)
	}

	if got := len(h.kinds()); got != 1 {
		t.Errorf("handler saw %d events, want only INIT", got)
	}
	if st := d.Status(); st.Deferral != nil || st.LastError != nil {
		t.Errorf("session changed by rejected events: %+v", st)
	}
}

func TestDispatch_Serialized(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, 0)
	mustDispatch(t, d, New(KindInit))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Dispatch(context.Background(), NewModemDomain(ModemBatteryLow))
		}()
	}
	wg.Wait()

	if h.overlap {
		t.Error("handler invoked concurrently")
	}
	if got := len(h.kinds()); got != 21 {
		t.Errorf("delivered %d events, want 21", got)
	}
}

func TestPostAndRun(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, 4)

	for _, e := range []Event{New(KindInit), New(KindLinkUp), New(KindBootstrapped), New(KindRegistered)} {
		if err := d.Post(e); err != nil {
			t.Fatalf("Post(%s) error = %v", e, err)
		}
	}
	if err := d.Post(New(KindLinkDown)); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Post on full queue error = %v, want ErrQueueFull", err)
	}
	if err := d.Post(New(Kind(99))); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("Post(invalid) error = %v, want ErrInvalidEvent", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(h.kinds()) < 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := h.kinds(); len(got) != 4 || got[3] != KindRegistered {
		t.Errorf("delivered %v", got)
	}
	if d.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", d.Pending())
	}
}

func TestPost_CopiesPayload(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, 2)
	mustDispatch(t, d, New(KindInit))

	buf := []byte("abc")
	if err := d.Post(NewAppData(buf)); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'z'

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = d.Run(ctx) }()
	deadline := time.Now().Add(2 * time.Second)
	for len(h.kinds()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) != 2 {
		t.Fatalf("delivered %d events", len(h.events))
	}
	if got := string(h.events[1].Payload.(AppData).Data); got != "abc" {
		t.Errorf("payload = %q, want abc", got)
	}
}
