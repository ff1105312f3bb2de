package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nyxlabs/nyx/internal/domain"
)

func newRecordStore(t *testing.T) *SQLiteRecordStore {
	t.Helper()
	store, err := NewSQLiteRecordStore(filepath.Join(t.TempDir(), "executions.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRecordStore error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordStoreSaveAndQuery(t *testing.T) {
	store := newRecordStore(t)

	records := []domain.ExecutionRecord{
		{Timestamp: time.Now().UTC().Add(-2 * time.Minute), SessionID: "s1", Command: "ls", Args: []string{"-la"}, ExitCode: 0, DurationMS: 12},
		{Timestamp: time.Now().UTC().Add(-1 * time.Minute), SessionID: "s1", Command: "cat", Args: []string{"/missing"}, ExitCode: 1, DurationMS: 3},
		{Timestamp: time.Now().UTC(), SessionID: "s2", Command: "whoami", ExitCode: 0, DurationMS: 5},
	}
	for _, rec := range records {
		if err := store.Save(rec); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}

	all, err := store.Records(0, "")
	if err != nil {
		t.Fatalf("Records error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d", len(all))
	}
	// Newest first.
	if all[0].Command != "whoami" {
		t.Fatalf("first record = %+v", all[0])
	}

	limited, err := store.Records(1, "")
	if err != nil {
		t.Fatalf("Records error: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited len = %d", len(limited))
	}

	matched, err := store.Records(0, "cat")
	if err != nil {
		t.Fatalf("Records error: %v", err)
	}
	if len(matched) != 1 || matched[0].Command != "cat" {
		t.Fatalf("search results = %+v", matched)
	}
	if matched[0].Args[0] != "/missing" {
		t.Fatalf("args not restored: %+v", matched[0])
	}
}

func TestRecordStorePreservesWhitespaceArgs(t *testing.T) {
	store := newRecordStore(t)

	rec := domain.ExecutionRecord{
		Timestamp: time.Now().UTC(),
		SessionID: "s1",
		Command:   "grep",
		Args:      []string{"hello world", "notes.txt"},
	}
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	// Arguments with spaces must come back as the same tokens, not re-split.
	got, err := store.Records(0, "hello world")
	if err != nil {
		t.Fatalf("Records error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d", len(got))
	}
	if diff := cmp.Diff(rec.Args, got[0].Args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
	if line := got[0].CommandLine(); line != "grep 'hello world' notes.txt" {
		t.Fatalf("CommandLine = %q", line)
	}
}

func TestRecordStorePrune(t *testing.T) {
	store := newRecordStore(t)

	old := domain.ExecutionRecord{Timestamp: time.Now().UTC().AddDate(0, 0, -40), Command: "ls"}
	fresh := domain.ExecutionRecord{Timestamp: time.Now().UTC(), Command: "whoami"}
	for _, rec := range []domain.ExecutionRecord{old, fresh} {
		if err := store.Save(rec); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}

	if err := store.PruneOlderThan(30); err != nil {
		t.Fatalf("PruneOlderThan error: %v", err)
	}
	remaining, err := store.Records(0, "")
	if err != nil {
		t.Fatalf("Records error: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Command != "whoami" {
		t.Fatalf("remaining = %+v", remaining)
	}

	// Disabled retention keeps everything.
	if err := store.PruneOlderThan(0); err != nil {
		t.Fatalf("PruneOlderThan(0) error: %v", err)
	}
	remaining, _ = store.Records(0, "")
	if len(remaining) != 1 {
		t.Fatalf("prune with 0 days should be a no-op, got %d rows", len(remaining))
	}
}
