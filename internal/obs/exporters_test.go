package obs

import (
	"bytes"
	"context"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"
)

func TestExpvarMetricsRecorderExports(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	if recorder.Name() == "" {
		t.Fatalf("expected recorder to have export name")
	}
	recorder.Observe(context.Background(), "admissions_s1", true, 10*time.Millisecond)
	recorder.Observe(context.Background(), "admissions_s1", false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Millisecond)

	snapshot := recorder.Snapshot()
	if snapshot.DurationsMS["admissions_s1"] <= 0 {
		t.Fatalf("expected positive duration, snapshot=%+v", snapshot)
	}
	if snapshot.Results["admissions_s1"]["success"] != 1 || snapshot.Results["admissions_s1"]["error"] != 1 {
		t.Fatalf("unexpected results snapshot=%+v", snapshot)
	}
	if v := expvar.Get(recorder.Name()); v == nil {
		t.Fatalf("expected expvar export to be registered")
	} else if !strings.Contains(v.String(), "admissions_s1") {
		t.Fatalf("expected expvar output to contain operation: %s", v.String())
	}
}

func TestExpvarMetricsRecorderAttrition(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	recorder.ObserveAttrition(context.Background(), "admissions_s4", 100, 80)
	recorder.ObserveAttrition(context.Background(), "admissions_s4", 80, 80)
	recorder.ObserveAttrition(context.Background(), "", 5, 5)

	got := recorder.Snapshot().Attrition["admissions_s4"]
	if got.RowsIn != 180 || got.RowsOut != 160 || got.Dropped != 20 {
		t.Fatalf("attrition = %+v", got)
	}
	if len(recorder.Snapshot().Attrition) != 1 {
		t.Fatalf("empty stage name must be ignored")
	}
}

func TestJSONTraceTracerExports(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "vitals_s2")
	span.End(nil)
	_, failing := tracer.Start(context.Background(), "vitals_s3")
	failing.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected two span entries, got %d", len(entries))
	}
	if entries[0].Operation != "vitals_s2" || entries[0].Status != "success" {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Fatalf("second entry = %+v", entries[1])
	}
	if !strings.Contains(buf.String(), "vitals_s3") {
		t.Fatalf("expected encoded output, got %q", buf.String())
	}
}

func TestJSONTracerNilWriterKeepsEntries(t *testing.T) {
	tracer := NewJSONTracer(nil)
	_, span := tracer.Start(context.Background(), "op")
	span.End(nil)
	if len(tracer.Entries()) != 1 {
		t.Fatalf("entries should be retained without a writer")
	}
}

func TestNopImplementationsDoNothing(_ *testing.T) {
	log := NopLogger()
	log.Debug("d", "k", "v")
	log.Info("i")
	log.Warn("w")
	log.Error("e")
	NopMetrics().Observe(context.Background(), "op", true, time.Second)
	NopMetrics().ObserveAttrition(context.Background(), "op", 1, 1)
	_, span := NopTracer().Start(context.Background(), "op")
	span.End(nil)
}
