package domain

import (
	"errors"
	"testing"
)

func TestSnapshotRecordRoundTrip(t *testing.T) {
	selected := 2
	snap := Snapshot{
		CurrentQuestionIndex: 3,
		SelectedIndex:        &selected,
		IsResultShown:        true,
		Score:                2,
		Phase:                PhaseQuestion,
		TimerRemaining:       12,
		SavedAt:              1715000000.5,
		Hours:                1,
		Minutes:              2,
		Seconds:              3,
		IsCountingDown:       false,
		FeedbackRemaining:    1.25,
		NextTickIn:           0.4,
	}

	rec := snap.Record()
	if rec[KeyPhase] != "question" || rec[KeySelectedIndex] != "2" || rec[KeyTimeSaved] != "1715000000.5" {
		t.Fatalf("unexpected record %+v", rec)
	}

	got, err := SnapshotFromRecord(rec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SelectedIndex == nil || *got.SelectedIndex != 2 {
		t.Fatalf("expected selected index 2, got %v", got.SelectedIndex)
	}
	got.SelectedIndex = snap.SelectedIndex
	if got != snap {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", snap, got)
	}
}

func TestSnapshotNilSelectionOmitted(t *testing.T) {
	rec := Snapshot{Phase: PhaseInterval}.Record()
	if _, ok := rec[KeySelectedIndex]; ok {
		t.Fatalf("expected selectedIndex to be omitted")
	}
	snap, err := SnapshotFromRecord(rec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.SelectedIndex != nil {
		t.Fatalf("expected nil selection")
	}
}

func TestSnapshotFromRecordErrors(t *testing.T) {
	if _, err := SnapshotFromRecord(nil); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
	if _, err := SnapshotFromRecord(map[string]string{KeyPhase: "paused"}); !errors.Is(err, ErrUnknownPhase) {
		t.Fatalf("expected ErrUnknownPhase, got %v", err)
	}
	bad := map[string]string{KeyPhase: "question", KeyScore: "many"}
	if _, err := SnapshotFromRecord(bad); !errors.Is(err, ErrMalformedSnapshot) {
		t.Fatalf("expected ErrMalformedSnapshot, got %v", err)
	}
}

func TestQuestionValidate(t *testing.T) {
	ok := Question{ID: 1, Options: []string{"a", "b"}, CorrectOptionIndex: 1}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	for _, q := range []Question{
		{ID: 2, Options: []string{"a", "b"}, CorrectOptionIndex: 2},
		{ID: 3, Options: []string{"a", "b"}, CorrectOptionIndex: -1},
		{ID: 4, Options: []string{"a"}, CorrectOptionIndex: 0},
	} {
		if err := q.Validate(); !errors.Is(err, ErrInvalidQuestion) {
			t.Fatalf("question %d: expected ErrInvalidQuestion, got %v", q.ID, err)
		}
	}
	if got := ValidQuestions([]Question{ok, {ID: 9, Options: []string{"x", "y"}, CorrectOptionIndex: 5}}); len(got) != 1 {
		t.Fatalf("expected 1 valid question, got %d", len(got))
	}
}
