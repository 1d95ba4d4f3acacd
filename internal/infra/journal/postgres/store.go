// Package postgres provides a postgres-backed journal store that mirrors the
// sqlite semantics over a shared database.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"edcohort/internal/journal/core"
)

var _ core.Store = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/edcohort?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists run records to a postgres journal table as JSONB payloads.
type Store struct {
	db *sql.DB
}

// New opens a postgres-backed store using the provided DSN (falls back to
// defaultDSN), verifies connectivity and ensures the journal table exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS journal (
		run_id TEXT PRIMARY KEY,
		pipeline TEXT NOT NULL,
		started_at BIGINT NOT NULL,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure journal table: %w", err)
	}
	return &Store{db: db}, nil
}

// Append records the run, replacing any earlier record with the same RunID.
func (s *Store) Append(ctx context.Context, rec core.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO journal(run_id,pipeline,started_at,payload) VALUES($1,$2,$3,$4)
		 ON CONFLICT(run_id) DO UPDATE SET pipeline=EXCLUDED.pipeline, started_at=EXCLUDED.started_at, payload=EXCLUDED.payload`,
		rec.RunID, rec.Pipeline, rec.StartedAt.UnixNano(), payload)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.RunID, err)
	}
	return nil
}

// List returns the records for pipeline ordered by start time ascending.
func (s *Store) List(ctx context.Context, pipeline string) ([]core.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM journal WHERE pipeline = $1 ORDER BY started_at, run_id`, pipeline)
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
		`SELECT payload FROM journal WHERE pipeline = $1 ORDER BY started_at DESC, run_id DESC LIMIT 1`, pipeline).
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

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
