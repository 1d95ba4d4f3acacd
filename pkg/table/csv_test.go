package table

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReadParsesDeclaredTimeColumns(t *testing.T) {
	src := "stay_id,intime,dod,acuity\n" +
		"30001,2150-03-01 08:00:00,2151-01-02,2\n" +
		"30002,,,\n"
	f, err := Read(strings.NewReader(src), ReadOptions{Name: "stays", TimeColumns: []string{"intime", "dod"}})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if f.NumRows() != 2 {
		t.Fatalf("rows = %d", f.NumRows())
	}
	if ts, ok := f.View(0).Time("intime"); !ok || ts.Hour() != 8 {
		t.Fatalf("intime = %v ok=%v", ts, ok)
	}
	if ts, ok := f.View(0).Time("dod"); !ok || ts.Year() != 2151 {
		t.Fatalf("date-only dod = %v ok=%v", ts, ok)
	}
	if got := f.View(0).String("acuity"); got != "2" {
		t.Fatalf("acuity stays raw, got %q", got)
	}
	if !f.View(1).Missing("intime") || !f.View(1).Missing("dod") {
		t.Fatalf("empty timestamps should be missing")
	}
}

func TestReadDeclaredTimeColumnAbsentIsSchemaError(t *testing.T) {
	_, err := Read(strings.NewReader("a,b\n1,2\n"), ReadOptions{Name: "stays", TimeColumns: []string{"intime"}})
	var se SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("want SchemaError, got %v", err)
	}
	if se.Table != "stays" || se.Column != "intime" {
		t.Fatalf("schema error fields: %+v", se)
	}
}

func TestReadRejectsBadTimestamp(t *testing.T) {
	_, err := Read(strings.NewReader("intime\nnot-a-time\n"), ReadOptions{Name: "x", TimeColumns: []string{"intime"}})
	if err == nil || !strings.Contains(err.Error(), "not-a-time") {
		t.Fatalf("want parse error naming the value, got %v", err)
	}
}

func TestWriteReadRoundTripKeepsRowIdentity(t *testing.T) {
	in := at(t, "2150-03-01", "08:00:00")
	f := mustFrame(t, "cohort", []string{"stay_id", "intime", "ESI"},
		[]any{"30001", in, "2.0"},
		[]any{"30002", nil, ""},
	)
	dropped := f.Filter(func(r RowView) bool { return r.String("stay_id") == "30002" })
	var buf bytes.Buffer
	if err := Write(&buf, dropped); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(&buf, ReadOptions{Name: "cohort", TimeColumns: []string{"intime"}, HasIndex: true})
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got.NumRows() != 1 {
		t.Fatalf("rows = %d", got.NumRows())
	}
	if got.View(0).Index() != 1 {
		t.Fatalf("index = %d, want original position 1", got.View(0).Index())
	}
	if !got.View(0).Missing("intime") {
		t.Fatalf("missing timestamp should survive the round trip")
	}
}

func TestWriteEmitsLeadingIndexColumn(t *testing.T) {
	f := mustFrame(t, "x", []string{"a"}, []any{"v"})
	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := ",a\n0,v\n"
	if buf.String() != want {
		t.Fatalf("csv = %q, want %q", buf.String(), want)
	}
}

func TestReadRejectsBadIndex(t *testing.T) {
	_, err := Read(strings.NewReader(",a\nnope,v\n"), ReadOptions{Name: "x", HasIndex: true})
	if err == nil || !strings.Contains(err.Error(), "row index") {
		t.Fatalf("want index error, got %v", err)
	}
}
