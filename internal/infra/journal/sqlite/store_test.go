package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"edcohort/internal/journal/core"
)

func sampleRecord(runID, pipeline string, started time.Time) core.Record {
	return core.Record{
		RunID:      runID,
		Pipeline:   pipeline,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Status:     core.StatusSucceeded,
		Stages: []core.StageReport{
			{Stage: "S1", ArtifactKey: "admissions_S1.csv", RowsIn: 100, RowsOut: 90, Dropped: 10, Elapsed: time.Second},
		},
	}
}

func TestSQLiteStoreAppendListLatest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.db")
	store, err := New(path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Append(ctx, sampleRecord("run-1", "admissions", base)); err != nil {
		t.Fatalf("append 1: %v", err)
	}
	if err := store.Append(ctx, sampleRecord("run-2", "admissions", base.Add(time.Hour))); err != nil {
		t.Fatalf("append 2: %v", err)
	}
	if err := store.Append(ctx, sampleRecord("run-3", "vitals", base.Add(2*time.Hour))); err != nil {
		t.Fatalf("append 3: %v", err)
	}

	recs, err := store.List(ctx, "admissions")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 || recs[0].RunID != "run-1" || recs[1].RunID != "run-2" {
		t.Fatalf("unexpected list order: %+v", recs)
	}
	if len(recs[0].Stages) != 1 || recs[0].Stages[0].Dropped != 10 {
		t.Fatalf("stage reports not restored: %+v", recs[0].Stages)
	}

	latest, ok, err := store.Latest(ctx, "admissions")
	if err != nil || !ok {
		t.Fatalf("latest: %v %v", ok, err)
	}
	if latest.RunID != "run-2" {
		t.Fatalf("expected run-2 latest, got %s", latest.RunID)
	}
	if _, ok, err := store.Latest(ctx, "nothing"); err != nil || ok {
		t.Fatalf("expected no latest for unknown pipeline: %v %v", ok, err)
	}
}

func TestSQLiteStoreAppendReplacesSameRunID(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	started := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	rec := sampleRecord("run-1", "admissions", started)
	rec.Status = core.StatusFailed
	rec.Error = "missing patients table"
	if err := store.Append(ctx, rec); err != nil {
		t.Fatalf("append failed run: %v", err)
	}
	retry := sampleRecord("run-1", "admissions", started.Add(time.Minute))
	if err := store.Append(ctx, retry); err != nil {
		t.Fatalf("append retry: %v", err)
	}

	recs, err := store.List(ctx, "admissions")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 || recs[0].Status != core.StatusSucceeded || recs[0].Error != "" {
		t.Fatalf("expected retry to supersede failure: %+v", recs)
	}
}

func TestSQLiteStoreReopenKeepsRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.db")
	store, err := New(path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	started := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Append(context.Background(), sampleRecord("run-1", "vitals", started)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	if reloaded.Path() != path {
		t.Fatalf("unexpected path %s", reloaded.Path())
	}
	recs, err := reloaded.List(context.Background(), "vitals")
	if err != nil || len(recs) != 1 {
		t.Fatalf("expected record to survive reopen: %v %+v", err, recs)
	}
	if !recs[0].StartedAt.Equal(started) {
		t.Fatalf("start time not restored: %v", recs[0].StartedAt)
	}
}

func TestSQLiteStoreTableExists(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	var tableName string
	if err := store.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name= ?", "journal").Scan(&tableName); err != nil {
		t.Fatalf("lookup journal table: %v", err)
	}
	if tableName != "journal" {
		t.Fatalf("expected journal table, got %s", tableName)
	}
}
