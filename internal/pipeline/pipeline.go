// Package pipeline runs the ETL stages over raw posting batches: resolve
// which batches to process, normalize and tag their records, and load the
// postings into the warehouse. Stages run strictly in order; a run only
// fails on conditions that leave nothing to do (no batches, no records,
// no database), everything narrower is absorbed into the run summary.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/datapole/go-etl/internal/common/loader"
	"github.com/datapole/go-etl/internal/common/normalizer"
	"github.com/datapole/go-etl/internal/common/reconcile"
	"github.com/datapole/go-etl/internal/common/store"
	"github.com/datapole/go-etl/internal/common/tagger"
	"github.com/datapole/go-etl/internal/domain"
)

// State names the stage a run is currently in.
type State string

const (
	StateIdle             State = "IDLE"
	StateResolvingBatches State = "RESOLVING_BATCHES"
	StateNormalizing      State = "NORMALIZING"
	StateTagging          State = "TAGGING"
	StateLoading          State = "LOADING"
	StateDone             State = "DONE"
	StateFailed           State = "FAILED"
)

// Mode selects how much of the pipeline a run executes.
type Mode string

const (
	// ModeFull runs extraction through loading.
	ModeFull Mode = "full"
	// ModeExtract stops after writing the combined raw extraction.
	ModeExtract Mode = "extract"
	// ModeTransform stops after writing the processed output.
	ModeTransform Mode = "transform"
	// ModeLoad skips extraction and loads postings from InputFile.
	ModeLoad Mode = "load"
)

// Options selects the work of one run.
type Options struct {
	Mode   Mode
	Source domain.Source
	// Dates bounds the batch names considered; the zero value selects
	// everything.
	Dates store.DateRange
	// SkipDB turns the load stage into a logged no-op.
	SkipDB bool
	// CSVPath additionally renders the postings as CSV at this path.
	CSVPath string
	// InputFile feeds ModeLoad from an earlier processed JSON file.
	InputFile string
}

// SkippedRef records one batch a run could not read and why.
type SkippedRef struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Result summarizes one run.
type Result struct {
	RunID        string        `json:"run_id"`
	State        State         `json:"state"`
	Extracted    int           `json:"extracted"`
	Transformed  int           `json:"transformed"`
	Loaded       int           `json:"loaded"`
	Indexed      int           `json:"indexed"`
	RecordErrors int           `json:"record_errors"`
	Skipped      []SkippedRef  `json:"skipped,omitempty"`
	OutputFile   string        `json:"output_file,omitempty"`
	CSVFile      string        `json:"csv_file,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Deps carries the components a pipeline runs with. Remote, Loader and
// Indexer may be nil; the pipeline degrades to local-only, skip-load runs.
type Deps struct {
	Local      store.Store
	Remote     store.Store
	Normalizer *normalizer.Normalizer
	Loader     loader.Loader
	Indexer    loader.Loader
}

// Pipeline executes ETL runs. Not safe for concurrent runs; callers
// serialize.
type Pipeline struct {
	deps   Deps
	engine *reconcile.Engine
	state  State
}

func New(deps Deps) *Pipeline {
	return &Pipeline{
		deps:   deps,
		engine: reconcile.NewEngine(deps.Local, deps.Remote),
		state:  StateIdle,
	}
}

// Run executes one pipeline run and returns its summary. The error is
// non-nil only for fatal conditions; per-record and per-batch failures are
// counted in the result instead.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	if opts.Mode == "" {
		opts.Mode = ModeFull
	}
	if opts.Source == "" {
		opts.Source = domain.SourceFranceTravail
	}

	p.state = StateIdle
	res := &Result{RunID: uuid.New().String(), State: StateIdle}
	log.Printf("[Pipeline] Run %s starting (mode=%s source=%s)", res.RunID, opts.Mode, opts.Source)

	err := p.run(ctx, opts, res)
	res.Duration = time.Since(start)
	if err != nil {
		p.transition(res, StateFailed)
		log.Printf("[Pipeline] Run %s failed after %s: %v", res.RunID, res.Duration.Round(time.Millisecond), err)
		return res, err
	}
	p.transition(res, StateDone)
	p.logSummary(res)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, opts Options, res *Result) error {
	var postings []*domain.Posting

	if opts.Mode == ModeLoad {
		loaded, err := readProcessed(opts.InputFile)
		if err != nil {
			return err
		}
		postings = loaded
		res.Transformed = len(postings)
		log.Printf("[Pipeline] Loaded %d postings from %s", len(postings), opts.InputFile)
	} else {
		records, err := p.resolveAndFetch(ctx, opts, res)
		if err != nil {
			return err
		}
		res.Extracted = len(records)

		if opts.Mode == ModeExtract {
			return p.writeExtraction(ctx, opts.Source, records, res)
		}

		postings = p.normalize(records, res)
		p.tag(postings, res)
		res.Transformed = len(postings)

		if err := p.writeProcessed(ctx, opts, postings, res); err != nil {
			// Processed output is a convenience copy; its failure
			// doesn't stop the load.
			log.Printf("[Pipeline] Error writing processed output: %v", err)
		}

		if opts.Mode == ModeTransform {
			return nil
		}
	}

	return p.load(ctx, opts, postings, res)
}

// resolveAndFetch turns the resolved batch references into raw postings.
// Unreadable batches are skipped with a reason; only an empty total is
// fatal.
func (p *Pipeline) resolveAndFetch(ctx context.Context, opts Options, res *Result) ([]*domain.RawPosting, error) {
	p.transition(res, StateResolvingBatches)

	refs, err := p.engine.Resolve(ctx, opts.Source, opts.Dates)
	if err != nil {
		return nil, fmt.Errorf("resolving batches: %w", err)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("no raw batches found for %s", opts.Source)
	}
	log.Printf("[Pipeline] Resolved %d batches for %s", len(refs), opts.Source)

	var records []*domain.RawPosting
	for _, ref := range refs {
		batch, err := p.fetch(ctx, ref)
		if err != nil {
			log.Printf("[Pipeline] Skipping %s: %v", ref.Name, err)
			res.Skipped = append(res.Skipped, SkippedRef{Name: ref.Name, Reason: err.Error()})
			continue
		}
		records = append(records, wrapRecords(ref, batch.Records)...)
		log.Printf("[Pipeline] Batch %s: %d records", ref.Name, len(batch.Records))
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no records extracted from %d batches", len(refs))
	}
	return records, nil
}

func (p *Pipeline) fetch(ctx context.Context, ref domain.BatchRef) (*domain.RawBatch, error) {
	if ref.Origin == domain.OriginRemote {
		if p.deps.Remote == nil {
			return nil, fmt.Errorf("remote origin not configured")
		}
		return p.deps.Remote.Fetch(ctx, ref)
	}
	return p.deps.Local.Fetch(ctx, ref)
}

// wrapRecords attaches the batch's source and collection time to each raw
// record.
func wrapRecords(ref domain.BatchRef, records []map[string]any) []*domain.RawPosting {
	collectedAt := batchTime(ref)
	wrapped := make([]*domain.RawPosting, 0, len(records))
	for _, data := range records {
		wrapped = append(wrapped, &domain.RawPosting{
			Source:      ref.Source,
			RawData:     data,
			ExtractedAt: collectedAt,
		})
	}
	return wrapped
}

// batchTime recovers the collection time from the reference's date token.
// Names without a token fall back to now.
func batchTime(ref domain.BatchRef) time.Time {
	if ref.DateToken != "" {
		if ts, err := time.Parse("20060102", ref.DateToken); err == nil {
			return ts
		}
	}
	return time.Now()
}

// normalize converts raw records to postings, dropping records the
// normalizer rejects and later duplicates of the same source id.
func (p *Pipeline) normalize(records []*domain.RawPosting, res *Result) []*domain.Posting {
	p.transition(res, StateNormalizing)

	seen := make(map[string]bool, len(records))
	postings := make([]*domain.Posting, 0, len(records))
	duplicates := 0
	for _, raw := range records {
		posting, err := p.deps.Normalizer.Normalize(raw)
		if err != nil {
			res.RecordErrors++
			log.Printf("[Pipeline] Dropping %s record: %v", raw.Source, err)
			continue
		}
		key := posting.Source + "/" + posting.ExternalID
		if seen[key] {
			duplicates++
			continue
		}
		seen[key] = true
		postings = append(postings, posting)
	}
	log.Printf("[Pipeline] Normalized %d postings (%d dropped, %d duplicates)",
		len(postings), res.RecordErrors, duplicates)
	return postings
}

func (p *Pipeline) tag(postings []*domain.Posting, res *Result) {
	p.transition(res, StateTagging)
	for _, posting := range postings {
		posting.Keywords, posting.Flags = tagger.Tag(posting.Description)
	}
}

// writeProcessed saves the postings under the processed tree, mirrors them
// to the remote store when one is configured, and optionally renders CSV.
func (p *Pipeline) writeProcessed(ctx context.Context, opts Options, postings []*domain.Posting, res *Result) error {
	payload, err := json.MarshalIndent(postings, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding postings: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("processed_jobs_%s.json", stamp)
	key, err := p.deps.Local.SaveProcessed(ctx, opts.Source, name, payload)
	if err != nil {
		return fmt.Errorf("saving processed output: %w", err)
	}
	res.OutputFile = key
	log.Printf("[Pipeline] Processed output written to %s", key)

	if p.deps.Remote != nil {
		if _, err := p.deps.Remote.SaveProcessed(ctx, opts.Source, name, payload); err != nil {
			log.Printf("[Pipeline] Error mirroring processed output: %v", err)
		}
	}

	if opts.CSVPath != "" {
		csvPayload, err := postingsCSV(postings, time.Now())
		if err != nil {
			log.Printf("[Pipeline] Error rendering CSV: %v", err)
			return nil
		}
		if err := os.WriteFile(opts.CSVPath, csvPayload, 0o644); err != nil {
			log.Printf("[Pipeline] Error writing CSV to %s: %v", opts.CSVPath, err)
			return nil
		}
		res.CSVFile = opts.CSVPath
		log.Printf("[Pipeline] CSV output written to %s", opts.CSVPath)
	}
	return nil
}

// writeExtraction saves the combined raw records of an extract-only run.
func (p *Pipeline) writeExtraction(ctx context.Context, source domain.Source, records []*domain.RawPosting, res *Result) error {
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding extraction: %w", err)
	}
	name := fmt.Sprintf("raw_extraction_%s.json", time.Now().Format("20060102_150405"))
	key, err := p.deps.Local.SaveProcessed(ctx, source, name, payload)
	if err != nil {
		return fmt.Errorf("saving extraction output: %w", err)
	}
	res.OutputFile = key
	log.Printf("[Pipeline] Raw extraction written to %s (%d records)", key, len(records))
	return nil
}

// readProcessed feeds a load-only run from an earlier processed JSON file.
func readProcessed(path string) ([]*domain.Posting, error) {
	if path == "" {
		return nil, fmt.Errorf("load mode requires an input file")
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input file: %w", err)
	}
	var postings []*domain.Posting
	if err := json.Unmarshal(payload, &postings); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return postings, nil
}

// load writes the postings into the warehouse and, when an indexer is
// configured, into the search index. Index failures are absorbed; the
// warehouse stays authoritative.
func (p *Pipeline) load(ctx context.Context, opts Options, postings []*domain.Posting, res *Result) error {
	p.transition(res, StateLoading)

	if opts.SkipDB {
		log.Printf("[Pipeline] Database load skipped (%d postings ready)", len(postings))
		return nil
	}
	if p.deps.Loader == nil {
		return fmt.Errorf("no database loader configured")
	}

	if err := p.deps.Loader.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	inserted, err := p.deps.Loader.Load(ctx, postings)
	if err != nil {
		return fmt.Errorf("loading postings: %w", err)
	}
	res.Loaded = inserted

	if p.deps.Indexer != nil {
		if err := p.deps.Indexer.EnsureSchema(ctx); err != nil {
			log.Printf("[Pipeline] Search index setup failed: %v", err)
		} else if indexed, err := p.deps.Indexer.Load(ctx, postings); err != nil {
			log.Printf("[Pipeline] Search indexing failed: %v", err)
		} else {
			res.Indexed = indexed
		}
	}
	return nil
}

func (p *Pipeline) transition(res *Result, next State) {
	if p.state == next {
		return
	}
	log.Printf("[Pipeline] %s -> %s", p.state, next)
	p.state = next
	res.State = next
}

func (p *Pipeline) logSummary(res *Result) {
	log.Printf("[Pipeline] Run %s done in %s: %d extracted | %d transformed | %d loaded | %d record errors",
		res.RunID, res.Duration.Round(time.Millisecond), res.Extracted, res.Transformed, res.Loaded, res.RecordErrors)
	for _, skip := range res.Skipped {
		log.Printf("[Pipeline] Skipped batch %s: %s", skip.Name, skip.Reason)
	}
}
