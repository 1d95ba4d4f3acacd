package artifact

import (
	memorystore "edcohort/internal/infra/blob/memory"
)

// NewMemory returns an in-memory artifact.Store suitable for tests.
func NewMemory() Store { return memorystore.New() }
