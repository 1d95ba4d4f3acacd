// Package sqlite provides an embedded sqlite-backed journal store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"edcohort/internal/journal/core"
)

var _ core.Store = (*Store)(nil)

// Store persists run records to a single sqlite table as JSON payloads.
type Store struct {
	db   *sql.DB
	path string
}

// New opens or creates the journal database at path.
func New(path string) (*Store, error) {
	if path == "" {
		path = "edcohort.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS journal (
		run_id TEXT PRIMARY KEY,
		pipeline TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create journal table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Append records the run, replacing any earlier record with the same RunID.
func (s *Store) Append(ctx context.Context, rec core.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO journal(run_id,pipeline,started_at,payload) VALUES(?,?,?,?)
		 ON CONFLICT(run_id) DO UPDATE SET pipeline=excluded.pipeline, started_at=excluded.started_at, payload=excluded.payload`,
		rec.RunID, rec.Pipeline, rec.StartedAt.UnixNano(), payload)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.RunID, err)
	}
	return nil
}

// List returns the records for pipeline ordered by start time ascending.
func (s *Store) List(ctx context.Context, pipeline string) ([]core.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM journal WHERE pipeline = ? ORDER BY started_at, run_id`, pipeline)
	if err != nil {
		return nil, fmt.Errorf("select journal: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []core.Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var rec core.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return out, nil
}

// Latest returns the most recent record for pipeline, if any.
func (s *Store) Latest(ctx context.Context, pipeline string) (core.Record, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM journal WHERE pipeline = ? ORDER BY started_at DESC, run_id DESC LIMIT 1`, pipeline).
		Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, false, nil
	}
	if err != nil {
		return core.Record{}, false, fmt.Errorf("select latest: %w", err)
	}
	var rec core.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return core.Record{}, false, fmt.Errorf("decode record: %w", err)
	}
	return rec, true, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
