// Package core defines the run journal types shared by the journal facade
// and its storage drivers.
package core

import (
	"context"
	"time"
)

// Driver identifies a concrete journal storage backend.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory (tests)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file (default, dev)
	DriverPostgres Driver = "postgres" // shared postgres instance
)

// Status is the terminal state of a recorded run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// StageReport captures the row flow through a single pipeline stage.
type StageReport struct {
	Stage       string        `json:"stage"`
	ArtifactKey string        `json:"artifact_key,omitempty"`
	RowsIn      int           `json:"rows_in"`
	RowsOut     int           `json:"rows_out"`
	Dropped     int           `json:"dropped"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// Record is one pipeline run as written to the journal. Appending a record
// with an existing RunID replaces the earlier entry, so a re-run under the
// same id supersedes its previous attempt.
type Record struct {
	RunID       string         `json:"run_id"`
	Pipeline    string         `json:"pipeline"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Status      Status         `json:"status"`
	Error       string         `json:"error,omitempty"`
	Stages      []StageReport  `json:"stages,omitempty"`
	Diagnostics map[string]int `json:"diagnostics,omitempty"`
}

// Store persists run records. List returns records for one pipeline ordered
// by start time ascending; Latest returns the most recent one.
type Store interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context, pipeline string) ([]Record, error)
	Latest(ctx context.Context, pipeline string) (Record, bool, error)
	Close() error
}
