package transcript

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.CreateRecord(ctx, "r", map[string]any{"status": "started"}); err != nil {
		t.Fatalf("CreateRecord err: %v", err)
	}

	const n = 25
	for i := 0; i < n; i++ {
		entry := Entry{Role: "user", Content: fmt.Sprintf("m%d", i)}
		if err := store.AppendMessage(ctx, "r", entry); err != nil {
			t.Fatalf("AppendMessage %d err: %v", i, err)
		}
	}

	record, err := store.GetRecord(ctx, "r")
	if err != nil {
		t.Fatalf("GetRecord err: %v", err)
	}
	if len(record.Entries) != n {
		t.Fatalf("expected %d entries, got %d", n, len(record.Entries))
	}
	for i, entry := range record.Entries {
		if entry.Content != fmt.Sprintf("m%d", i) {
			t.Fatalf("entry %d out of order: %q", i, entry.Content)
		}
		if entry.Role != "user" {
			t.Fatalf("entry %d lost role: %q", i, entry.Role)
		}
	}
}

func TestMemoryStoreUpdateMerges(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.CreateRecord(ctx, "r", map[string]any{"status": "started", "group": "text"}); err != nil {
		t.Fatalf("CreateRecord err: %v", err)
	}
	if err := store.UpdateRecord(ctx, "r", map[string]any{"status": "completed"}); err != nil {
		t.Fatalf("UpdateRecord err: %v", err)
	}

	record, err := store.GetRecord(ctx, "r")
	if err != nil {
		t.Fatalf("GetRecord err: %v", err)
	}
	if record.Fields["status"] != "completed" {
		t.Fatalf("unexpected status: %v", record.Fields["status"])
	}
	if record.Fields["group"] != "text" {
		t.Fatalf("merge lost existing field: %v", record.Fields["group"])
	}
}

func TestMemoryStoreMissingRecord(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.AppendMessage(ctx, "missing", Entry{Role: "user", Content: "x"}); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if err := store.UpdateRecord(ctx, "missing", nil); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if _, err := store.GetRecord(ctx, "missing"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestMemoryStoreListCompleted(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.CreateRecord(ctx, "a", map[string]any{"status": "started"}); err != nil {
		t.Fatalf("CreateRecord err: %v", err)
	}
	if err := store.CreateRecord(ctx, "b", map[string]any{"status": "completed"}); err != nil {
		t.Fatalf("CreateRecord err: %v", err)
	}

	records, err := store.ListCompleted(ctx, 0)
	if err != nil {
		t.Fatalf("ListCompleted err: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 completed record, got %d", len(records))
	}
	if records[0].Fields["status"] != "completed" {
		t.Fatalf("unexpected record: %+v", records[0].Fields)
	}
}
