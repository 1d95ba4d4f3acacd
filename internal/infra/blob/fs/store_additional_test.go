package fs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"edcohort/internal/artifact/core"
)

type errorReader struct{}

func (errorReader) Read(p []byte) (int, error) { return 0, errors.New("boom") }

func TestStoreDriverAndErrorBranches(t *testing.T) {
	store := newTempStore(t)
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected driver %v", store.Driver())
	}
	ctx := context.Background()
	if _, err := store.Put(ctx, "bad.bin", errorReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected copy error")
	}
	// a failed put must not leave a partial object behind
	if _, err := store.Head(ctx, "bad.bin"); !errors.Is(err, core.ErrNotExist) {
		t.Fatalf("expected ErrNotExist after failed put, got %v", err)
	}
}

func TestStore_MissingSidecar(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "folder/f0.csv", bytes.NewReader([]byte("data")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, metaPath, _ := store.pathFor("folder/f0.csv")
	if err := os.Remove(metaPath); err != nil {
		t.Fatalf("rm meta: %v", err)
	}
	if _, _, err := store.Get(ctx, "folder/f0.csv"); err == nil {
		t.Fatalf("expected get sidecar error")
	}
	if _, err := store.Head(ctx, "folder/f0.csv"); err == nil {
		t.Fatalf("expected head sidecar error")
	}
}

func TestReadMetaInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/meta.json"
	if err := os.WriteFile(path, []byte("not-json"), 0o600); err != nil {
		t.Fatalf("write invalid meta: %v", err)
	}
	if _, err := readMeta(path); err == nil {
		t.Fatalf("expected readMeta error for invalid json")
	}
}

func TestCloneMetadata(t *testing.T) {
	if cloneMetadata(nil) != nil {
		t.Fatalf("expected nil clone for nil input")
	}
	original := map[string]string{"k": "v"}
	cloned := cloneMetadata(original)
	if cloned["k"] != "v" {
		t.Fatalf("unexpected clone value")
	}
	cloned["k"] = "mutated"
	if original["k"] != "v" {
		t.Fatalf("expected original to remain unchanged")
	}
}
