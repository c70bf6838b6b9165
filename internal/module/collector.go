package module

import (
	"context"

	"github.com/datapole/go-etl/internal/domain"
)

// BatchHandler is a callback invoked after each raw batch is saved. It
// receives the saved batch reference and the number of records the batch
// holds.
type BatchHandler func(ref domain.BatchRef, count int) error

// Collector is the common interface for all posting collectors. Collectors
// fetch postings from their source page by page and persist each page as a
// raw batch through the store.
type Collector interface {
	// Collect fetches postings from the source and returns the saved batch references
	Collect(ctx context.Context) ([]domain.BatchRef, error)
	// CollectWithCallback fetches postings page by page and calls handler after each saved batch
	CollectWithCallback(ctx context.Context, handler BatchHandler) error
	// Source returns the source identifier
	Source() domain.Source
}
