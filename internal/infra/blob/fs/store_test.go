package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"edcohort/internal/artifact/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStore_PutGetHeadListDelete(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	info, err := store.Put(ctx, "stage/admissions_S1.csv", bytes.NewReader([]byte("hello")), core.PutOptions{ContentType: "text/csv", Metadata: map[string]string{"stage": "S1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "stage/admissions_S1.csv" || info.Size != 5 {
		t.Fatalf("unexpected info %+v", info)
	}
	h, err := store.Head(ctx, "stage/admissions_S1.csv")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	g, rc, err := store.Get(ctx, "stage/admissions_S1.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if string(b) != "hello" || g.ETag != h.ETag {
		t.Fatalf("unexpected get artifacts")
	}
	if h.Metadata["stage"] != "S1" || h.ContentType != "text/csv" {
		t.Fatalf("metadata not restored: %+v", h)
	}
	list, err := store.List(ctx, "stage/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "stage/admissions_S1.csv" {
		t.Fatalf("unexpected list %+v", list)
	}
	ok, err := store.Delete(ctx, "stage/admissions_S1.csv")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "stage/admissions_S1.csv")
	if err != nil || ok {
		t.Fatalf("second delete should be false")
	}
}

func TestStore_OverwriteKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	first, err := store.Put(ctx, "run/out.csv", bytes.NewReader([]byte("v1")), core.PutOptions{})
	if err != nil {
		t.Fatalf("put1: %v", err)
	}
	_, metaPath, _ := store.pathFor("run/out.csv")
	before, err := readMeta(metaPath)
	if err != nil {
		t.Fatalf("read meta before: %v", err)
	}
	second, err := store.Put(ctx, "run/out.csv", bytes.NewReader([]byte("version-two")), core.PutOptions{ContentType: "text/csv"})
	if err != nil {
		t.Fatalf("put2: %v", err)
	}
	if second.Size != int64(len("version-two")) || second.ETag == first.ETag {
		t.Fatalf("overwrite did not replace content: %+v", second)
	}
	after, err := readMeta(metaPath)
	if err != nil {
		t.Fatalf("read meta after: %v", err)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Fatalf("expected creation time to survive overwrite: %v vs %v", after.CreatedAt, before.CreatedAt)
	}
	_, rc, err := store.Get(ctx, "run/out.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "version-two" {
		t.Fatalf("unexpected content after overwrite: %s", string(b))
	}
}

func TestStore_NotExist(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Head(ctx, "missing.csv"); !errors.Is(err, core.ErrNotExist) {
		t.Fatalf("head: expected ErrNotExist, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing.csv"); !errors.Is(err, core.ErrNotExist) {
		t.Fatalf("get: expected ErrNotExist, got %v", err)
	}
}

func TestStore_PathTraversal(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "../escape.txt", bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
		t.Fatalf("expected traversal error")
	}
	if _, err := store.Put(ctx, "/abs.txt", bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
		t.Fatalf("expected absolute error")
	}
}

func TestStore_MetadataPersistence(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "meta/data.bin", bytes.NewReader([]byte("abc")), core.PutOptions{ContentType: "application/octet-stream", Metadata: map[string]string{"a": "1"}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	dataPath, metaPath, _ := store.pathFor("meta/data.bin")
	if _, err := os.Stat(dataPath); err != nil {
		t.Fatalf("expected data path: %v", err)
	}
	b, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	if !bytes.Contains(b, []byte("application/octet-stream")) {
		t.Fatalf("meta missing content type")
	}
	if filepath.Ext(metaPath) != ".meta" {
		t.Fatalf("meta path extension mismatch")
	}
}

func TestStore_ListSkipsSidecarsAndSorts(t *testing.T) {
	dir := t.TempDir()
	store, _ := New(dir)
	ctx := context.Background()
	for i := 2; i >= 0; i-- {
		k := "folder/f" + strconv.Itoa(i) + ".csv"
		if _, err := store.Put(ctx, k, bytes.NewReader([]byte("data")), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	list, err := store.List(ctx, "folder/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 entries skipping sidecars, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Key > list[i].Key {
			t.Fatalf("expected sorted order: %+v", list)
		}
	}
	all, err := store.List(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("list root: %v len=%d", err, len(all))
	}
}

func TestSanitizeKeyErrors(t *testing.T) {
	cases := []string{"", "../escape", "/abs", "a/../b"}
	for _, c := range cases {
		if _, err := sanitizeKey(c); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
	if k, err := sanitizeKey("a/b.csv"); err != nil || k != "a/b.csv" {
		t.Fatalf("unexpected sanitize result %q %v", k, err)
	}
}
