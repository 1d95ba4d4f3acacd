package table

import "testing"

// Timestamps [t0, t0, t1, t2] per group must yield the full row at t1: the
// duplicate of the first event is the same occurrence, not a second one.
func TestSecondDistinctEventSkipsTiesWithFirst(t *testing.T) {
	t0 := at(t, "2150-03-01", "08:00:00")
	t1 := at(t, "2150-03-01", "12:00:00")
	t2 := at(t, "2150-03-02", "09:00:00")
	f := mustFrame(t, "transfers", []string{"subject_id", "careunit", "intime"},
		[]any{"10", "Emergency Department", t0},
		[]any{"10", "Emergency Department", t0},
		[]any{"10", "Medicine", t1},
		[]any{"10", "Surgery", t2},
	)
	out, err := SecondDistinctEvent(f, "subject_id", "intime")
	if err != nil {
		t.Fatalf("second event: %v", err)
	}
	if out.NumRows() != 1 {
		t.Fatalf("rows = %d", out.NumRows())
	}
	if got := out.View(0).String("careunit"); got != "Medicine" {
		t.Fatalf("second event careunit = %q, want Medicine", got)
	}
	if ts, _ := out.View(0).Time("intime"); !ts.Equal(t1) {
		t.Fatalf("second event time = %v, want %v", ts, t1)
	}
}

func TestSecondDistinctEventNeedsTwoDistinctTimestamps(t *testing.T) {
	t0 := at(t, "2150-03-01", "08:00:00")
	f := mustFrame(t, "transfers", []string{"subject_id", "intime"},
		[]any{"10", t0},
		[]any{"10", t0},
		[]any{"11", t0},
		[]any{"12", t0},
		[]any{"12", at(t, "2150-03-01", "09:00:00")},
	)
	out, err := SecondDistinctEvent(f, "subject_id", "intime")
	if err != nil {
		t.Fatalf("second event: %v", err)
	}
	if out.NumRows() != 1 || out.View(0).String("subject_id") != "12" {
		t.Fatalf("only subject 12 has a second distinct event, got %d rows", out.NumRows())
	}
}

func TestSecondDistinctEventTieBreaksToLowestIndex(t *testing.T) {
	t0 := at(t, "2150-03-01", "08:00:00")
	t1 := at(t, "2150-03-01", "10:00:00")
	f := mustFrame(t, "transfers", []string{"subject_id", "careunit", "intime"},
		[]any{"10", "ED", t0},
		[]any{"10", "Medicine", t1},
		[]any{"10", "Surgery", t1},
	)
	out, err := SecondDistinctEvent(f, "subject_id", "intime")
	if err != nil {
		t.Fatalf("second event: %v", err)
	}
	if got := out.View(0).String("careunit"); got != "Medicine" {
		t.Fatalf("tie should keep the earlier-loaded row, got %q", got)
	}
}

func TestSecondDistinctEventIgnoresMissingTimestamps(t *testing.T) {
	t0 := at(t, "2150-03-01", "08:00:00")
	f := mustFrame(t, "transfers", []string{"subject_id", "intime"},
		[]any{"10", t0},
		[]any{"10", nil},
	)
	out, err := SecondDistinctEvent(f, "subject_id", "intime")
	if err != nil {
		t.Fatalf("second event: %v", err)
	}
	if out.NumRows() != 0 {
		t.Fatalf("missing timestamp must not count as a second event")
	}
}
