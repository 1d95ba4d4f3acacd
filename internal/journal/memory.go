package journal

import (
	memorystore "edcohort/internal/infra/journal/memory"
)

// NewMemory returns an in-memory journal.Store suitable for tests.
func NewMemory() Store { return memorystore.New() }
