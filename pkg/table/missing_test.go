package table

import (
	"errors"
	"testing"
)

func sparseFixture(t *testing.T, rows ...[]any) *Frame {
	t.Helper()
	return mustFrame(t, "vitals", []string{"stay_id", "HR", "RR"}, rows...)
}

// A group with exactly minCount rows and exactly minFrac non-missing on its
// worst feature sits on the inclusive boundary and survives.
func TestFilterSparseGroupsBoundaryIsInclusive(t *testing.T) {
	f := sparseFixture(t,
		[]any{"a", "80", "18"},
		[]any{"a", "82", ""},
		[]any{"a", "", "20"},
		[]any{"a", "84", "19"},
		[]any{"a", "86", ""},
	)
	// 5 rows; HR 4/5, RR 3/5 = exactly 0.6.
	out, dropped, err := FilterSparseGroups(f, "stay_id", []string{"HR", "RR"}, 3, 0.6)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if dropped != 0 || out.NumRows() != 5 {
		t.Fatalf("boundary group dropped: rows=%d dropped=%d", out.NumRows(), dropped)
	}
}

func TestFilterSparseGroupsDropsBelowFraction(t *testing.T) {
	f := sparseFixture(t,
		[]any{"a", "80", "18"},
		[]any{"a", "82", ""},
		[]any{"a", "", ""},
		[]any{"a", "84", "19"},
		[]any{"a", "86", ""},
	)
	// RR 2/5 < 0.6: any feature below the fraction drops the whole group.
	out, dropped, err := FilterSparseGroups(f, "stay_id", []string{"HR", "RR"}, 3, 0.6)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if dropped != 1 || out.NumRows() != 0 {
		t.Fatalf("group should drop: rows=%d dropped=%d", out.NumRows(), dropped)
	}
}

func TestFilterSparseGroupsDropsBelowCount(t *testing.T) {
	f := sparseFixture(t,
		[]any{"a", "80", "18"},
		[]any{"a", "82", "19"},
		[]any{"b", "80", "18"},
		[]any{"b", "81", "19"},
		[]any{"b", "82", "20"},
	)
	out, dropped, err := FilterSparseGroups(f, "stay_id", []string{"HR", "RR"}, 3, 0.6)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if dropped != 1 {
		t.Fatalf("dropped = %d, want the 2-row group gone", dropped)
	}
	for i := 0; i < out.NumRows(); i++ {
		if out.View(i).String("stay_id") != "b" {
			t.Fatalf("unexpected survivor %q", out.View(i).String("stay_id"))
		}
	}
}

func TestFilterSparseGroupsKeepsRowOrderAcrossGroups(t *testing.T) {
	f := sparseFixture(t,
		[]any{"b", "80", "18"},
		[]any{"a", "80", "18"},
		[]any{"b", "81", "19"},
		[]any{"a", "81", "19"},
		[]any{"b", "82", "20"},
		[]any{"a", "82", "20"},
	)
	out, _, err := FilterSparseGroups(f, "stay_id", []string{"HR", "RR"}, 3, 0.6)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if out.NumRows() != 6 {
		t.Fatalf("rows = %d", out.NumRows())
	}
	for i := 0; i < out.NumRows(); i++ {
		if out.View(i).Index() != int64(i) {
			t.Fatalf("row order disturbed at %d", i)
		}
	}
}

func TestFilterSparseGroupsValidatesInput(t *testing.T) {
	f := sparseFixture(t)
	if _, _, err := FilterSparseGroups(f, "stay_id", []string{"HR"}, 3, 1.5); err == nil {
		t.Fatalf("expected fraction range error")
	}
	_, _, err := FilterSparseGroups(f, "stay_id", []string{"TEMP"}, 3, 0.6)
	var se SchemaError
	if !errors.As(err, &se) || se.Column != "TEMP" {
		t.Fatalf("want SchemaError on TEMP, got %v", err)
	}
}
