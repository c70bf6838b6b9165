// Package worker consumes batch references from the queue and runs each
// batch through the transform and load stages, one reference at a time.
package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/datapole/go-etl/internal/common/dedup"
	"github.com/datapole/go-etl/internal/common/loader"
	"github.com/datapole/go-etl/internal/common/normalizer"
	"github.com/datapole/go-etl/internal/common/store"
	"github.com/datapole/go-etl/internal/common/tagger"
	"github.com/datapole/go-etl/internal/domain"
	"github.com/datapole/go-etl/internal/queue"
)

// refsPerCycle caps how many queued references one worker picks up per
// consume call.
const refsPerCycle = 5

// Config holds worker configuration.
type Config struct {
	Concurrency int
}

// Worker processes queued batch references: fetch the batch, classify its
// records against the seen-set, normalize and tag the rest, load them.
type Worker struct {
	consumer   *queue.Consumer
	store      store.Store
	normalizer *normalizer.Normalizer
	loader     loader.Loader
	dedup      *dedup.Deduplicator

	concurrency int
}

// NewWorker creates a worker pool over the given components.
func NewWorker(
	consumer *queue.Consumer,
	st store.Store,
	norm *normalizer.Normalizer,
	ld loader.Loader,
	deduplicator *dedup.Deduplicator,
	cfg Config,
) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Worker{
		consumer:    consumer,
		store:       st,
		normalizer:  norm,
		loader:      ld,
		dedup:       deduplicator,
		concurrency: cfg.Concurrency,
	}
}

// Run starts the worker pool and blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	log.Printf("[Worker] Starting pool with %d workers", w.concurrency)

	var wg sync.WaitGroup
	errChan := make(chan error, w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			if err := w.runSingle(ctx, workerID); err != nil {
				errChan <- fmt.Errorf("worker %d: %w", workerID, err)
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errChan:
		return err
	case <-done:
		return nil
	}
}

func (w *Worker) runSingle(ctx context.Context, workerID int) error {
	log.Printf("[Worker] Worker %d started", workerID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Worker] Worker %d stopping", workerID)
			return nil
		default:
		}

		// ConsumeBatch blocks on the first reference, so idle workers
		// don't spin.
		refs, err := w.consumer.ConsumeBatch(ctx, refsPerCycle)
		if err != nil {
			log.Printf("[Worker] Worker %d consume error: %v", workerID, err)
			continue
		}

		for _, ref := range refs {
			w.processBatch(ctx, workerID, ref)
		}
	}
}

// processBatch transforms and loads one batch. Every failure is local to
// the batch; the worker keeps consuming.
func (w *Worker) processBatch(ctx context.Context, workerID int, ref *domain.BatchRef) {
	batch, err := w.store.Fetch(ctx, *ref)
	if err != nil {
		log.Printf("[Worker] Worker %d failed to fetch %s: %v", workerID, ref.Name, err)
		return
	}

	extractedAt := time.Now()
	if ts, err := time.Parse("20060102", ref.DateToken); err == nil {
		extractedAt = ts
	}

	// Classify records against the seen-set. Unchanged records are
	// skipped here; actual insert idempotence stays with the loader.
	var newCount, updatedCount, unchangedCount int
	stamps := make(map[string]string)
	toProcess := make([]*domain.RawPosting, 0, len(batch.Records))
	for _, record := range batch.Records {
		raw := &domain.RawPosting{Source: ref.Source, RawData: record, ExtractedAt: extractedAt}

		id := recordID(record)
		if id == "" {
			// The normalizer reports these as unusable.
			toProcess = append(toProcess, raw)
			continue
		}
		stamp := recordStamp(record)
		result, err := w.dedup.CheckPosting(ctx, string(ref.Source), id, stamp)
		if err != nil {
			// Degrades to ResultNew: re-process rather than drop.
			log.Printf("[Worker] Worker %d dedup check error: %v", workerID, err)
		}
		switch result {
		case dedup.ResultUnchanged:
			unchangedCount++
			continue
		case dedup.ResultUpdated:
			updatedCount++
		case dedup.ResultNew:
			newCount++
		}
		stamps[id] = stamp
		toProcess = append(toProcess, raw)
	}

	postings := make([]*domain.Posting, 0, len(toProcess))
	for _, raw := range toProcess {
		posting, err := w.normalizer.Normalize(raw)
		if err != nil {
			log.Printf("[Worker] Worker %d dropping record: %v", workerID, err)
			continue
		}
		posting.Keywords, posting.Flags = tagger.Tag(posting.Description)
		postings = append(postings, posting)
	}

	inserted := 0
	if len(postings) > 0 {
		inserted, err = w.loader.Load(ctx, postings)
		if err != nil {
			log.Printf("[Worker] Worker %d load failed for %s: %v", workerID, ref.Name, err)
			return
		}
		// Mark only after the load landed, so a failed batch is retried
		// with full content next time it is seen.
		for _, posting := range postings {
			stamp, ok := stamps[posting.ExternalID]
			if !ok {
				continue
			}
			if err := w.dedup.MarkPosting(ctx, posting.Source, posting.ExternalID, stamp); err != nil {
				log.Printf("[Worker] Worker %d mark seen error: %v", workerID, err)
			}
		}
	}

	log.Printf("[Worker] Worker %d batch %s: %d records | %d new | %d updated | %d unchanged | %d loaded",
		workerID, ref.Name, len(batch.Records), newCount, updatedCount, unchangedCount, inserted)
}

// recordID pulls the source identifier from a raw record, trying the keys
// both sources use.
func recordID(record map[string]any) string {
	for _, key := range []string{"id", "reference"} {
		if v, ok := record[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// recordStamp pulls the refresh timestamp used for change detection.
func recordStamp(record map[string]any) string {
	for _, key := range []string{"dateActualisation", "scraped_at"} {
		if v, ok := record[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
