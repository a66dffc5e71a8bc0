package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"flags-challenge/internal/domain"
)

func TestSnapshotStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "snapshot.yaml")
	store := NewSnapshotStore(path, "flags")

	rec, err := store.LoadRecord(ctx)
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}
	if len(rec) != 0 {
		t.Fatalf("expected empty record, got %+v", rec)
	}

	snap := domain.Snapshot{Phase: domain.PhaseInterval, TimerRemaining: 4, Score: 2, CurrentQuestionIndex: 3, SavedAt: 1700000000.25}
	if err := store.SaveRecord(ctx, snap.Record()); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened := NewSnapshotStore(path, "flags")
	rec, err = reopened.LoadRecord(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got, err := domain.SnapshotFromRecord(rec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != snap {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", snap, got)
	}

	other := NewSnapshotStore(path, "other")
	if rec, _ := other.LoadRecord(ctx); len(rec) != 0 {
		t.Fatalf("expected namespaces isolated, got %+v", rec)
	}
}

func TestSnapshotStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := os.WriteFile(path, []byte("flags: [not, a, map"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewSnapshotStore(path, "flags").LoadRecord(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}
