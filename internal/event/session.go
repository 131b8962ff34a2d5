package event

import (
	"fmt"
	"sync"
	"time"
)

// State is the logical state of the device's session with the carrier.
type State uint8

// Session states.
const (
	StateUninit State = iota
	StateInitialized
	StateLinkUp
	StateLinkDown
	StatePoweredOff
	StateBootstrapped
	StateRegistered
	StateRebooting
)

var stateNames = []string{
	"uninit", "initialized", "link_up", "link_down", "powered_off",
	"bootstrapped", "registered", "rebooting",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Deferral is the pending retry annotation left by a DEFERRED event.
type Deferral struct {
	Reason  DeferredReason `json:"reason"`
	Timeout int32          `json:"timeout"`
	At      time.Time      `json:"at"`
}

// RetryAt returns when the engine is expected to retry.
func (d Deferral) RetryAt() time.Time {
	return d.At.Add(time.Duration(d.Timeout) * time.Second)
}

// Status is a snapshot of the session.
type Status struct {
	State     State      `json:"state"`
	Deferral  *Deferral  `json:"deferral,omitempty"`
	FOTA      *FOTAStart `json:"fota,omitempty"`
	LastError *ErrorInfo `json:"last_error,omitempty"`
	LastEvent Kind       `json:"last_event"`
	Events    uint64     `json:"events"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// transitions lists, for each state-changing kind, the states it is
// expected from and the state it leads to. Kinds not listed leave the
// state unchanged.
var transitions = map[Kind]struct {
	from []State
	to   State
}{
	KindInit:         {[]State{StateUninit, StateRebooting}, StateInitialized},
	KindLinkUp:       {[]State{StateInitialized, StateLinkDown, StatePoweredOff}, StateLinkUp},
	KindLinkDown:     {[]State{StateLinkUp, StateBootstrapped, StateRegistered}, StateLinkDown},
	KindPowerOff:     {[]State{StateInitialized, StateLinkUp, StateLinkDown, StateBootstrapped, StateRegistered}, StatePoweredOff},
	KindBootstrapped: {[]State{StateLinkUp, StateRegistered}, StateBootstrapped},
	KindRegistered:   {[]State{StateLinkUp, StateBootstrapped, StateRegistered}, StateRegistered},
	KindReboot:       {[]State{StateInitialized, StateLinkUp, StateLinkDown, StatePoweredOff, StateBootstrapped, StateRegistered}, StateRebooting},
}

// annotationKinds need a registered session to be expected.
var annotationKinds = map[Kind][]State{
	KindFOTAStart: {StateRegistered},
	KindAppData:   {StateRegistered},
}

// Admit reports whether k may be delivered while in state s.
// Before INIT only INIT and ERROR are admitted.
func Admit(s State, k Kind) error {
	if s == StateUninit && k != KindInit && k != KindError {
		return fmt.Errorf("%w: %s before init", ErrNotInitialized, k)
	}
	return nil
}

// Next returns the state that follows s on k and whether k was expected
// in s. Unexpected events still take effect.
func Next(s State, k Kind) (State, bool) {
	if t, ok := transitions[k]; ok {
		return t.to, contains(t.from, s)
	}
	if from, ok := annotationKinds[k]; ok {
		return s, contains(from, s)
	}
	// DEFERRED, MODEM_DOMAIN and ERROR are expected anywhere.
	return s, true
}

func contains(states []State, s State) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

// Session tracks the session state across dispatched events.
//
// All public methods are thread-safe.
type Session struct {
	mu     sync.RWMutex
	status Status
}

// NewSession creates a session in StateUninit.
func NewSession() *Session {
	return &Session{}
}

// Status returns a copy of the current status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status.copy()
}

// Apply records a delivered event and returns the resulting status and
// whether the event was expected in the previous state.
func (s *Session) Apply(e Event, now time.Time) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.status
	next, expected := Next(st.State, e.Kind)

	if _, changes := transitions[e.Kind]; changes {
		st.Deferral = nil
	}
	if e.Kind == KindInit {
		st.FOTA = nil
		st.LastError = nil
	}

	switch p := e.Payload.(type) {
	case Deferred:
		st.Deferral = &Deferral{Reason: p.Reason, Timeout: p.Timeout, At: now}
	case FOTAStart:
		fota := p
		st.FOTA = &fota
	case ErrorInfo:
		info := p
		st.LastError = &info
		if p.Type.IsFOTA() {
			st.FOTA = nil
		}
	}

	st.State = next
	st.LastEvent = e.Kind
	st.Events++
	st.UpdatedAt = now
	return st.copy(), expected
}

func (st Status) copy() Status {
	if st.Deferral != nil {
		d := *st.Deferral
		st.Deferral = &d
	}
	if st.FOTA != nil {
		f := *st.FOTA
		st.FOTA = &f
	}
	if st.LastError != nil {
		e := *st.LastError
		st.LastError = &e
	}
	return st
}
