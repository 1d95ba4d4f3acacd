package journal

import (
	"context"

	postgresstore "edcohort/internal/infra/journal/postgres"
)

// NewPostgres constructs a postgres-backed journal.Store from the provided
// DSN. An empty DSN uses the driver default.
func NewPostgres(ctx context.Context, dsn string) (Store, error) {
	return postgresstore.New(ctx, dsn)
}
