package event

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Kind identifies an event. Numeric values match the carrier event codes.
type Kind uint8

// Event kinds.
const (
	KindInit         Kind = 1
	KindLinkUp       Kind = 2
	KindLinkDown     Kind = 3
	KindPowerOff     Kind = 4
	KindBootstrapped Kind = 6
	KindRegistered   Kind = 7
	KindDeferred     Kind = 8
	KindFOTAStart    Kind = 9
	KindReboot       Kind = 10
	KindModemDomain  Kind = 12
	KindAppData      Kind = 13
	KindError        Kind = 20
)

var kindNames = map[Kind]string{
	KindInit:         "init",
	KindLinkUp:       "lte_link_up",
	KindLinkDown:     "lte_link_down",
	KindPowerOff:     "lte_power_off",
	KindBootstrapped: "bootstrapped",
	KindRegistered:   "registered",
	KindDeferred:     "deferred",
	KindFOTAStart:    "fota_start",
	KindReboot:       "reboot",
	KindModemDomain:  "modem_domain",
	KindAppData:      "app_data",
	KindError:        "error",
}

// AllKinds returns every event kind in code order.
func AllKinds() []Kind {
	return []Kind{
		KindInit, KindLinkUp, KindLinkDown, KindPowerOff, KindBootstrapped, KindRegistered,
		KindDeferred, KindFOTAStart, KindReboot, KindModemDomain, KindAppData, KindError,
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind converts a name such as "registered" to a Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, name)
}

// DeferredReason explains why the engine postponed a connection attempt.
type DeferredReason uint8

// Deferred reasons.
const (
	DeferredNoReason           DeferredReason = 0
	DeferredPDNActivate        DeferredReason = 1
	DeferredBootstrapNoRoute   DeferredReason = 2
	DeferredBootstrapConnect   DeferredReason = 3
	DeferredBootstrapSequence  DeferredReason = 4
	DeferredServerNoRoute      DeferredReason = 5
	DeferredServerConnect      DeferredReason = 6
	DeferredServerRegistration DeferredReason = 7
	DeferredServiceUnavailable DeferredReason = 8
	DeferredSIMMSISDN          DeferredReason = 9
)

var deferredReasonNames = []string{
	"no_reason", "pdn_activate", "bootstrap_no_route", "bootstrap_connect",
	"bootstrap_sequence", "server_no_route", "server_connect", "server_registration",
	"service_unavailable", "sim_msisdn",
}

func (r DeferredReason) String() string {
	if int(r) < len(deferredReasonNames) {
		return deferredReasonNames[r]
	}
	return fmt.Sprintf("deferred_reason(%d)", uint8(r))
}

// FOTAType is the kind of firmware being updated.
type FOTAType uint8

// FOTA types.
const (
	FOTAModemDelta  FOTAType = 0
	FOTAApplication FOTAType = 2
)

func (f FOTAType) String() string {
	switch f {
	case FOTAModemDelta:
		return "modem_delta"
	case FOTAApplication:
		return "application"
	default:
		return fmt.Sprintf("fota_type(%d)", uint8(f))
	}
}

// ModemEvent is a modem domain event.
type ModemEvent uint8

// Modem domain events.
const (
	ModemOverheated ModemEvent = 0
	ModemBatteryLow ModemEvent = 1
	ModemResetLoop  ModemEvent = 2
)

const numModemEvents = 3

func (m ModemEvent) String() string {
	switch m {
	case ModemOverheated:
		return "overheated"
	case ModemBatteryLow:
		return "battery_low"
	case ModemResetLoop:
		return "reset_loop"
	default:
		return fmt.Sprintf("modem_event(%d)", uint8(m))
	}
}

// ErrorType classifies an ERROR event.
type ErrorType uint8

// Error event types.
const (
	ErrorNone           ErrorType = 0
	ErrorLinkUpFail     ErrorType = 1
	ErrorLinkDownFail   ErrorType = 2
	ErrorBootstrap      ErrorType = 3
	ErrorFOTAPackage    ErrorType = 4
	ErrorFOTAProtocol   ErrorType = 5
	ErrorFOTAConnection ErrorType = 6
	ErrorFOTAConnLost   ErrorType = 7
	ErrorFOTAFail       ErrorType = 8
	ErrorConfiguration  ErrorType = 9
	ErrorInit           ErrorType = 10
	ErrorInternal       ErrorType = 11
)

var errorTypeNames = []string{
	"no_error", "lte_link_up_fail", "lte_link_down_fail", "bootstrap", "fota_pkg",
	"fota_proto", "fota_conn", "fota_conn_lost", "fota_fail", "configuration", "init",
	"internal",
}

func (e ErrorType) String() string {
	if int(e) < len(errorTypeNames) {
		return errorTypeNames[e]
	}
	return fmt.Sprintf("error_type(%d)", uint8(e))
}

// IsFOTA reports whether the error aborts a firmware update.
func (e ErrorType) IsFOTA() bool {
	return e >= ErrorFOTAPackage && e <= ErrorFOTAFail
}

// Payload is the data attached to an event. Kinds without data carry a
// nil Payload.
type Payload interface {
	kind() Kind
}

// Deferred is the payload of a DEFERRED event.
type Deferred struct {
	Reason DeferredReason `json:"reason"`
	// Timeout is the retry delay in seconds.
	Timeout int32 `json:"timeout"`
}

// FOTAStart is the payload of a FOTA_START event.
type FOTAStart struct {
	Type FOTAType `json:"type"`
	// URI is empty when the download does not use one.
	URI string `json:"uri,omitempty"`
}

// ModemDomain is the payload of a MODEM_DOMAIN event.
type ModemDomain struct {
	Event ModemEvent `json:"event"`
}

// AppData is the payload of an APP_DATA event.
type AppData struct {
	Data []byte `json:"data"`
}

// ErrorInfo is the payload of an ERROR event.
type ErrorInfo struct {
	Type  ErrorType `json:"type"`
	Value int32     `json:"value"`
}

func (Deferred) kind() Kind    { return KindDeferred }
func (FOTAStart) kind() Kind   { return KindFOTAStart }
func (ModemDomain) kind() Kind { return KindModemDomain }
func (AppData) kind() Kind     { return KindAppData }
func (ErrorInfo) kind() Kind   { return KindError }

// Event is one occurrence delivered to the host.
type Event struct {
	Kind    Kind
	Payload Payload
}

// New returns an event of a kind that carries no payload.
func New(k Kind) Event {
	return Event{Kind: k}
}

// NewDeferred returns a DEFERRED event.
func NewDeferred(reason DeferredReason, timeout int32) Event {
	return Event{Kind: KindDeferred, Payload: Deferred{Reason: reason, Timeout: timeout}}
}

// NewFOTAStart returns a FOTA_START event.
func NewFOTAStart(t FOTAType, uri string) Event {
	return Event{Kind: KindFOTAStart, Payload: FOTAStart{Type: t, URI: uri}}
}

// NewModemDomain returns a MODEM_DOMAIN event.
func NewModemDomain(e ModemEvent) Event {
	return Event{Kind: KindModemDomain, Payload: ModemDomain{Event: e}}
}

// NewAppData returns an APP_DATA event. The buffer is borrowed: the
// dispatcher copies it before delivery.
func NewAppData(data []byte) Event {
	return Event{Kind: KindAppData, Payload: AppData{Data: data}}
}

// NewError returns an ERROR event.
func NewError(t ErrorType, value int32) Event {
	return Event{Kind: KindError, Payload: ErrorInfo{Type: t, Value: value}}
}

// Validate checks that the kind is known, that the payload matches it
// and that payload enumerations are in range.
func (e Event) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidEvent, uint8(e.Kind))
	}

	switch e.Kind {
	case KindDeferred, KindFOTAStart, KindModemDomain, KindAppData, KindError:
		if !isPayloadValue(e.Payload) || e.Payload.kind() != e.Kind {
			return fmt.Errorf("%w: %s needs a %s payload", ErrInvalidEvent, e.Kind, e.Kind)
		}
	default:
		if e.Payload != nil {
			return fmt.Errorf("%w: %s carries no payload", ErrInvalidEvent, e.Kind)
		}
		return nil
	}

	switch p := e.Payload.(type) {
	case Deferred:
		if int(p.Reason) >= len(deferredReasonNames) {
			return fmt.Errorf("%w: deferred reason %d", ErrInvalidEvent, p.Reason)
		}
		if p.Timeout < 0 {
			return fmt.Errorf("%w: negative deferred timeout", ErrInvalidEvent)
		}
	case FOTAStart:
		if p.Type != FOTAModemDelta && p.Type != FOTAApplication {
			return fmt.Errorf("%w: fota type %d", ErrInvalidEvent, p.Type)
		}
	case ModemDomain:
		if p.Event >= numModemEvents {
			return fmt.Errorf("%w: modem event %d", ErrInvalidEvent, p.Event)
		}
	case AppData:
		if p.Data == nil {
			return fmt.Errorf("%w: app data without buffer", ErrInvalidEvent)
		}
	case ErrorInfo:
		if int(p.Type) >= len(errorTypeNames) {
			return fmt.Errorf("%w: error type %d", ErrInvalidEvent, p.Type)
		}
	default:
		return fmt.Errorf("%w: payload type %T", ErrInvalidEvent, e.Payload)
	}
	return nil
}

// isPayloadValue reports whether p is one of the payload value types.
// Pointers to them also satisfy Payload but are rejected, so a payload
// can always be copied and type-switched by value.
func isPayloadValue(p Payload) bool {
	switch p.(type) {
	case Deferred, FOTAStart, ModemDomain, AppData, ErrorInfo:
		return true
	}
	return false
}

// clone returns an event whose payload shares no memory with e.
func (e Event) clone() Event {
	if p, ok := e.Payload.(AppData); ok {
		e.Payload = AppData{Data: slices.Clone(p.Data)}
	}
	return e
}

// String implements fmt.Stringer.
func (e Event) String() string {
	switch p := e.Payload.(type) {
	case Deferred:
		return fmt.Sprintf("%s(reason=%s, timeout=%ds)", e.Kind, p.Reason, p.Timeout)
	case FOTAStart:
		return fmt.Sprintf("%s(type=%s, uri=%q)", e.Kind, p.Type, p.URI)
	case ModemDomain:
		return fmt.Sprintf("%s(%s)", e.Kind, p.Event)
	case AppData:
		return fmt.Sprintf("%s(%d bytes)", e.Kind, len(p.Data))
	case ErrorInfo:
		return fmt.Sprintf("%s(type=%s, value=%d)", e.Kind, p.Type, p.Value)
	default:
		return e.Kind.String()
	}
}

// wireEvent is the JSON form of an Event.
type wireEvent struct {
	Kind    string          `json:"kind"`
	Code    uint8           `json:"code"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{Kind: e.Kind.String(), Code: uint8(e.Kind)}
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshalling %s payload: %w", e.Kind, err)
		}
		w.Payload = raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. The kind is taken from the
// name when present, otherwise from the code.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	k := Kind(w.Code)
	if w.Kind != "" {
		parsed, err := ParseKind(w.Kind)
		if err != nil {
			return err
		}
		k = parsed
	}

	var p Payload
	var err error
	switch k {
	case KindDeferred:
		p, err = decodePayload[Deferred](w.Payload)
	case KindFOTAStart:
		p, err = decodePayload[FOTAStart](w.Payload)
	case KindModemDomain:
		p, err = decodePayload[ModemDomain](w.Payload)
	case KindAppData:
		var ad AppData
		ad, err = decodePayload[AppData](w.Payload)
		if err == nil && ad.Data == nil {
			ad.Data = []byte{}
		}
		p = ad
	case KindError:
		p, err = decodePayload[ErrorInfo](w.Payload)
	}
	if err != nil {
		return fmt.Errorf("decoding %s payload: %w", k, err)
	}

	*e = Event{Kind: k, Payload: p}
	return nil
}

func decodePayload[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
