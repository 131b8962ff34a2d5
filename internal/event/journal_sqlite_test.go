package event

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/nerrad567/carrier-core/internal/infrastructure/database"
	"github.com/nerrad567/carrier-core/migrations"
)

// setupJournalTestDB opens an in-memory database with the journal schema applied.
func setupJournalTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db.DB
}

func delivery(id string, e Event, state State, at time.Time) Delivery {
	return Delivery{
		ID:       id,
		Event:    e,
		Expected: true,
		Status:   Status{State: state},
		At:       at,
	}
}

// TestJournal_RecordAndRecent verifies journal writes and retrieval.
func TestJournal_RecordAndRecent(t *testing.T) {
	j := NewSQLiteJournal(setupJournalTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	records := []Delivery{
		delivery("a", New(KindInit), StateInitialized, base),
		delivery("b", NewDeferred(DeferredPDNActivate, 30), StateInitialized, base.Add(time.Second)),
		delivery("c", New(KindReboot), StateRebooting, base.Add(2*time.Second)),
	}
	records[2].Decision = HostIntervenes

	for _, d := range records {
		if err := j.Record(ctx, d); err != nil {
			t.Fatalf("Record(%s) error = %v", d.ID, err)
		}
	}

	entries, err := j.Recent(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].ID != "c" || entries[2].ID != "a" {
		t.Errorf("order = %s,%s,%s, want newest first", entries[0].ID, entries[1].ID, entries[2].ID)
	}
	if entries[0].Decision != HostIntervenes || entries[0].State != StateRebooting {
		t.Errorf("reboot entry = %+v", entries[0])
	}
	if !entries[1].CreatedAt.Equal(base.Add(time.Second)) {
		t.Errorf("CreatedAt = %v", entries[1].CreatedAt)
	}
	if string(entries[1].Payload) != `{"reason":1,"timeout":30}` {
		t.Errorf("payload = %s", entries[1].Payload)
	}
	if entries[2].Payload != nil {
		t.Errorf("init payload = %s, want none", entries[2].Payload)
	}
}

func TestJournal_FilterAndLimit(t *testing.T) {
	j := NewSQLiteJournal(setupJournalTestDB(t))
	ctx := context.Background()
	base := time.Now().UTC()

	for i, k := range []Kind{KindInit, KindRegistered, KindRegistered, KindRegistered} {
		d := delivery(string(rune('a'+i)), New(k), StateRegistered, base.Add(time.Duration(i)*time.Second))
		if err := j.Record(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := j.Recent(ctx, KindRegistered, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].ID != "d" || entries[1].ID != "c" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestJournal_RecordRequiresID(t *testing.T) {
	j := NewSQLiteJournal(setupJournalTestDB(t))
	if err := j.Record(context.Background(), Delivery{Event: New(KindInit)}); err == nil {
		t.Fatal("Record() without id succeeded")
	}
}

func TestJournal_Prune(t *testing.T) {
	j := NewSQLiteJournal(setupJournalTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return now }

	old := delivery("old", New(KindInit), StateInitialized, now.Add(-48*time.Hour))
	fresh := delivery("new", New(KindLinkUp), StateLinkUp, now.Add(-time.Hour))
	for _, d := range []Delivery{old, fresh} {
		if err := j.Record(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	n, err := j.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
	if _, err := j.Prune(ctx, 0); err == nil {
		t.Error("Prune(0) succeeded")
	}
}

func TestJournalObserver_WithDispatcher(t *testing.T) {
	j := NewSQLiteJournal(setupJournalTestDB(t))
	d := NewDispatcher(nil, 0)
	d.AddObserver(NewJournalObserver(j, nil))

	ctx := context.Background()
	for _, e := range []Event{New(KindInit), New(KindLinkUp), NewAppData([]byte{0x01})} {
		if _, err := d.Dispatch(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := j.Recent(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].Kind != KindAppData || entries[0].Expected {
		t.Errorf("newest entry = %+v, want unexpected app_data", entries[0])
	}
}
