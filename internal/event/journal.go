package event

import (
	"context"
	"encoding/json"
	"time"
)

// JournalEntry is one persisted delivery.
type JournalEntry struct {
	// ID is the delivery identifier (UUID).
	ID string `json:"id"`

	// Kind is the event kind.
	Kind Kind `json:"kind"`

	// Payload is the JSON encoded payload, empty for kinds without one.
	Payload json.RawMessage `json:"payload,omitempty"`

	// State is the session state after the event.
	State State `json:"state"`

	// Decision is the reboot decision (meaningful for REBOOT only).
	Decision RebootDecision `json:"decision"`

	// Expected is false when the event did not fit the previous state.
	Expected bool `json:"expected"`

	// CreatedAt is the delivery time (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Journal stores delivered events for later inspection.
//
// Implementations must be thread-safe and use UTC timestamps.
type Journal interface {
	// Record persists a delivery.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - d: Delivery as passed to observers
	//
	// Returns:
	//   - error: nil on success, otherwise the underlying persistence error
	Record(ctx context.Context, d Delivery) error

	// Recent returns the latest entries, newest first.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - kind: Restrict to one kind, or 0 for all kinds
	//   - limit: Maximum entries to return (implementation may clamp bounds)
	//
	// Returns:
	//   - []JournalEntry: Entries ordered newest first (may be empty)
	//   - error: nil on success, otherwise the underlying query error
	Recent(ctx context.Context, kind Kind, limit int) ([]JournalEntry, error)
}

// JournalObserver records every delivery into a Journal. Write failures
// are logged and never block dispatch.
type JournalObserver struct {
	journal Journal
	logger  Logger
}

// NewJournalObserver wraps j as an Observer.
func NewJournalObserver(j Journal, logger Logger) *JournalObserver {
	if logger == nil {
		logger = noopLogger{}
	}
	return &JournalObserver{journal: j, logger: logger}
}

// ObserveEvent implements Observer.
func (o *JournalObserver) ObserveEvent(ctx context.Context, d Delivery) {
	if err := o.journal.Record(ctx, d); err != nil {
		o.logger.Error("recording event", "event", d.Event.Kind.String(), "error", err)
	}
}
