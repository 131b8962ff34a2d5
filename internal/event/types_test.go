package event

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nerrad567/carrier-core/internal/lwm2m"
)

func TestKindCodes(t *testing.T) {
	want := map[Kind]uint8{
		KindInit: 1, KindLinkUp: 2, KindLinkDown: 3, KindPowerOff: 4,
		KindBootstrapped: 6, KindRegistered: 7, KindDeferred: 8, KindFOTAStart: 9,
		KindReboot: 10, KindModemDomain: 12, KindAppData: 13, KindError: 20,
	}
	for k, code := range want {
		if uint8(k) != code {
			t.Errorf("%s = %d, want %d", k, uint8(k), code)
		}
	}
	if len(AllKinds()) != len(want) {
		t.Errorf("len(AllKinds()) = %d, want %d", len(AllKinds()), len(want))
	}
	if Kind(5).Valid() || Kind(11).Valid() {
		t.Error("unused codes reported valid")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range AllKinds() {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("sleep"); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("ParseKind(sleep) error = %v", err)
	}
}

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{"init", New(KindInit), false},
		{"registered", New(KindRegistered), false},
		{"deferred", NewDeferred(DeferredSIMMSISDN, 60), false},
		{"fota with uri", NewFOTAStart(FOTAModemDelta, "coaps://fw.example/pkg"), false},
		{"fota without uri", NewFOTAStart(FOTAApplication, ""), false},
		{"modem", NewModemDomain(ModemResetLoop), false},
		{"app data", NewAppData([]byte{1, 2}), false},
		{"app data empty", NewAppData([]byte{}), false},
		{"error", NewError(ErrorFOTAConnLost, -5), false},

		{"unknown kind", New(Kind(5)), true},
		{"missing payload", New(KindDeferred), true},
		{"unexpected payload", Event{Kind: KindRegistered, Payload: ModemDomain{}}, true},
		{"mismatched payload", Event{Kind: KindError, Payload: Deferred{}}, true},
		{"deferred reason", NewDeferred(10, 0), true},
		{"deferred timeout", NewDeferred(DeferredPDNActivate, -1), true},
		{"fota type", NewFOTAStart(1, "x"), true},
		{"modem event", NewModemDomain(3), true},
		{"app data nil", NewAppData(nil), true},
		{"error type", NewError(12, 0), true},

		{"deferred pointer", Event{Kind: KindDeferred, Payload: &Deferred{Reason: 200, Timeout: -5}}, true},
		{"fota pointer", Event{Kind: KindFOTAStart, Payload: &FOTAStart{Type: FOTAApplication}}, true},
		{"modem pointer", Event{Kind: KindModemDomain, Payload: &ModemDomain{}}, true},
		{"app data pointer", Event{Kind: KindAppData, Payload: &AppData{Data: []byte{1}}}, true},
		{"app data pointer nil buffer", Event{Kind: KindAppData, Payload: &AppData{}}, true},
		{"error pointer", Event{Kind: KindError, Payload: &ErrorInfo{Type: ErrorInternal}}, true},
		{"nil pointer", Event{Kind: KindDeferred, Payload: (*Deferred)(nil)}, true},
		{"pointer on plain kind", Event{Kind: KindInit, Payload: (*AppData)(nil)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, lwm2m.ErrInvalidArgument) {
				t.Errorf("error %v should be an invalid argument", err)
			}
		})
	}
}

func TestEvent_JSON(t *testing.T) {
	events := []Event{
		New(KindRegistered),
		NewDeferred(DeferredServerConnect, 300),
		NewFOTAStart(FOTAApplication, "https://fw.example/app.bin"),
		NewModemDomain(ModemBatteryLow),
		NewAppData([]byte("hello")),
		NewError(ErrorBootstrap, 2),
	}

	for _, e := range events {
		raw, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("Marshal(%s) error = %v", e, err)
		}

		var got Event
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", raw, err)
		}
		if got.String() != e.String() {
			t.Errorf("round trip = %s, want %s", got, e)
		}
	}
}

func TestEvent_UnmarshalByCode(t *testing.T) {
	var e Event
	if err := json.Unmarshal([]byte(`{"code":8,"payload":{"reason":1,"timeout":30}}`), &e); err != nil {
		t.Fatal(err)
	}
	p, ok := e.Payload.(Deferred)
	if e.Kind != KindDeferred || !ok || p.Reason != DeferredPDNActivate || p.Timeout != 30 {
		t.Errorf("decoded %+v", e)
	}
}

func TestEvent_Clone(t *testing.T) {
	buf := []byte("abc")
	e := NewAppData(buf).clone()
	buf[0] = 'z'

	if got := e.Payload.(AppData).Data; string(got) != "abc" {
		t.Errorf("clone shares memory: %q", got)
	}
}
