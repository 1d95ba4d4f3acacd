// Package journal re-exports the run journal abstractions for stable imports
// across the pipeline.
package journal

import (
	"context"
	"fmt"
	"os"

	"edcohort/internal/journal/core"
)

type (
	// Driver identifies a journal backend driver.
	Driver = core.Driver
	// Status is the terminal state of a recorded run.
	Status = core.Status
	// StageReport captures the row flow through a single pipeline stage.
	StageReport = core.StageReport
	// Record is one pipeline run as written to the journal.
	Record = core.Record
	// Store is the interface for journal storage backends.
	Store = core.Store
)

const (
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
	// DriverSQLite is the embedded sqlite driver.
	DriverSQLite = core.DriverSQLite
	// DriverPostgres is the shared postgres driver.
	DriverPostgres = core.DriverPostgres

	// StatusSucceeded marks a run that produced its final artifact.
	StatusSucceeded = core.StatusSucceeded
	// StatusFailed marks a run that stopped on an error.
	StatusFailed = core.StatusFailed
)

// Open selects a journal.Store implementation using environment variables.
//
//	EDCOHORT_JOURNAL_DRIVER: memory|sqlite|postgres (default sqlite)
//	EDCOHORT_JOURNAL_SQLITE_PATH: database file when driver=sqlite (default edcohort.db)
//	EDCOHORT_JOURNAL_POSTGRES_DSN: connection string when driver=postgres
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("EDCOHORT_JOURNAL_DRIVER")
	if driver == "" {
		driver = string(DriverSQLite)
	}
	switch Driver(driver) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(os.Getenv("EDCOHORT_JOURNAL_SQLITE_PATH"))
	case DriverPostgres:
		return NewPostgres(ctx, os.Getenv("EDCOHORT_JOURNAL_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown journal driver %s", driver)
	}
}
