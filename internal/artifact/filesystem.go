package artifact

import (
	"edcohort/internal/infra/blob/fs"
)

// NewFilesystem constructs a filesystem-backed artifact.Store rooted at the
// provided path. Returns artifact.Store so call sites depend on the interface
// instead of concrete implementations.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
