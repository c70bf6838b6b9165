// Package loader persists normalized postings into warehouse backends.
// Loads are idempotent: records already present in the backend are
// skipped, never rewritten.
package loader

import (
	"context"

	"github.com/datapole/go-etl/internal/domain"
)

// Loader is a warehouse backend.
type Loader interface {
	// EnsureSchema creates the backing table or index if it is missing.
	EnsureSchema(ctx context.Context) error
	// Load persists the postings that are not already present and reports
	// how many were written.
	Load(ctx context.Context, postings []*domain.Posting) (int, error)
	// Close releases the backend connection.
	Close() error
}
