package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 200

	// journalTimeFormat is fixed width so created_at sorts as text.
	journalTimeFormat = "2006-01-02T15:04:05.000000Z"
)

// SQLiteJournal implements Journal using SQLite.
//
// It stores one row per delivery in the event_journal table.
type SQLiteJournal struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteJournal creates a new SQLite event journal.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteJournal: Journal instance ready for use
func NewSQLiteJournal(db *sql.DB) *SQLiteJournal {
	return &SQLiteJournal{db: db, now: time.Now}
}

// Record inserts a delivery.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - d: Delivery to persist
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (j *SQLiteJournal) Record(ctx context.Context, d Delivery) error {
	if d.ID == "" {
		return fmt.Errorf("delivery id is required")
	}

	var payload sql.NullString
	if d.Event.Payload != nil {
		raw, err := json.Marshal(d.Event.Payload)
		if err != nil {
			return fmt.Errorf("marshalling payload: %w", err)
		}
		payload = sql.NullString{String: string(raw), Valid: true}
	}

	at := d.At
	if at.IsZero() {
		at = j.now()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO event_journal (id, kind, code, payload, state, decision, expected, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.Event.Kind.String(),
		int(d.Event.Kind),
		payload,
		d.Status.State.String(),
		d.Decision.String(),
		d.Expected,
		at.UTC().Format(journalTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting event journal: %w", err)
	}

	return nil
}

// Recent returns the latest entries, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - kind: Restrict to one kind, or 0 for all kinds
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []JournalEntry: Entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (j *SQLiteJournal) Recent(ctx context.Context, kind Kind, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = defaultJournalLimit
	}
	if limit > maxJournalLimit {
		limit = maxJournalLimit
	}

	query := `SELECT id, code, payload, state, decision, expected, created_at
		 FROM event_journal`
	args := []any{}
	if kind != 0 {
		query += " WHERE code = ?"
		args = append(args, int(kind))
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying event journal: %w", err)
	}
	defer rows.Close()

	entries := make([]JournalEntry, 0, limit)
	for rows.Next() {
		var entry JournalEntry
		var code int
		var payload sql.NullString
		var state, decision, createdAt string

		if err := rows.Scan(&entry.ID, &code, &payload, &state, &decision, &entry.Expected, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event journal: %w", err)
		}

		entry.Kind = Kind(code)
		if payload.Valid {
			entry.Payload = json.RawMessage(payload.String)
		}
		entry.State = parseState(state)
		if decision == HostIntervenes.String() {
			entry.Decision = HostIntervenes
		}

		timestamp, err := parseJournalTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event journal: %w", err)
	}

	return entries, nil
}

// Prune deletes entries older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Duration to retain (entries older than now-olderThan are deleted)
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (j *SQLiteJournal) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := j.now().UTC().Add(-olderThan).Format(journalTimeFormat)
	result, err := j.db.ExecContext(ctx,
		"DELETE FROM event_journal WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting event journal: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

func parseState(name string) State {
	for i, n := range stateNames {
		if n == name {
			return State(i)
		}
	}
	return StateUninit
}

// parseJournalTimestamp parses a timestamp stored in SQLite.
func parseJournalTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(journalTimeFormat, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse(time.RFC3339, value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
