package journal

import (
	sqlitestore "edcohort/internal/infra/journal/sqlite"
)

// NewSQLite constructs an embedded sqlite-backed journal.Store at the given
// database path. An empty path uses the driver default.
func NewSQLite(path string) (Store, error) {
	return sqlitestore.New(path)
}
