// Package appdata implements the outbound buffer of the App Data
// Container object.
//
// The host hands a payload to Send. The protocol engine collects it with
// Take. Only the latest unconsumed payload is kept.
package appdata

import (
	"fmt"
	"sync"

	"github.com/nerrad567/carrier-core/internal/lwm2m"
)

var (
	// ErrNotProvisioned is returned when the App Data Container is not
	// enabled for this deployment.
	ErrNotProvisioned = lwm2m.NewError(lwm2m.ErrNotInitialized, "appdata: container not provisioned")

	// ErrNilBuffer is returned when Send is given a nil buffer.
	ErrNilBuffer = lwm2m.NewError(lwm2m.ErrInvalidArgument, "appdata: nil buffer")
)

// Outbox holds at most one pending uplink payload.
//
// All public methods are thread-safe.
type Outbox struct {
	mu          sync.Mutex
	budget      *lwm2m.Budget
	provisioned bool
	pending     []byte
	hasPending  bool
	sent        uint64
	dropped     uint64
}

// NewOutbox creates an outbox. Payload copies are reserved from budget.
func NewOutbox(budget *lwm2m.Budget, provisioned bool) *Outbox {
	return &Outbox{budget: budget, provisioned: provisioned}
}

// Provision enables the outbox.
func (o *Outbox) Provision() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.provisioned = true
}

// Deprovision disables the outbox and discards any pending payload.
func (o *Outbox) Deprovision() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.provisioned = false
	o.discardLocked()
}

// Provisioned reports whether Send is accepted.
func (o *Outbox) Provisioned() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.provisioned
}

// Send copies buf into the outbox, replacing any payload not yet taken.
// An empty non-nil buf is a valid payload.
func (o *Outbox) Send(buf []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.provisioned {
		return ErrNotProvisioned
	}
	if buf == nil {
		return ErrNilBuffer
	}

	if err := o.budget.Swap(len(o.pending), len(buf)); err != nil {
		return fmt.Errorf("appdata: copying %d bytes: %w", len(buf), err)
	}

	if o.hasPending {
		o.dropped++
	}
	o.pending = append(make([]byte, 0, len(buf)), buf...)
	o.hasPending = true
	o.sent++
	return nil
}

// Take removes and returns the pending payload. The second result is
// false when nothing is pending.
func (o *Outbox) Take() ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.hasPending {
		return nil, false
	}
	buf := o.pending
	o.budget.Release(len(buf))
	o.pending = nil
	o.hasPending = false
	return buf, true
}

// Pending reports whether a payload is waiting to be taken.
func (o *Outbox) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hasPending
}

// Stats reports how many payloads were accepted and how many were
// overwritten before being taken.
func (o *Outbox) Stats() (sent, overwritten uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent, o.dropped
}

func (o *Outbox) discardLocked() {
	if o.hasPending {
		o.budget.Release(len(o.pending))
	}
	o.pending = nil
	o.hasPending = false
}
