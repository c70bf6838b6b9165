package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/datapole/go-etl/internal/common/cleaner"
	"github.com/datapole/go-etl/internal/common/loader"
	"github.com/datapole/go-etl/internal/common/normalizer"
	"github.com/datapole/go-etl/internal/common/store"
	"github.com/datapole/go-etl/internal/config"
	"github.com/datapole/go-etl/internal/domain"
	"github.com/datapole/go-etl/internal/pipeline"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	mode := flag.String("mode", "full", "pipeline mode: full, extract, transform or load")
	source := flag.String("source", string(domain.SourceFranceTravail), "posting source: france_travail or welcome_jungle")
	startDate := flag.String("start-date", "", "first batch date to process (YYYY-MM-DD, default 7 days ago)")
	endDate := flag.String("end-date", "", "last batch date to process (YYYY-MM-DD, default today)")
	allData := flag.Bool("all-data", false, "process every batch regardless of date")
	skipDB := flag.Bool("skip-db", false, "skip the database load stage")
	outputCSV := flag.String("output-csv", "", "also write the processed postings as CSV to this path")
	inputFile := flag.String("input-file", "", "processed JSON file to load (load mode)")
	flag.Parse()

	log.Println("Starting ETL Pipeline")

	opts, err := buildOptions(*mode, *source, *startDate, *endDate, *allData, *skipDB, *outputCSV, *inputFile)
	if err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}

	// Load configuration
	cfg := config.Load()
	ctx := context.Background()

	localStore := store.NewLocalStore(cfg.Storage.DataDir)
	deps := pipeline.Deps{
		Local: localStore,
		Normalizer: normalizer.NewNormalizer(cleaner.NewCleaner(), normalizer.Options{
			HomeCountry:      cfg.Pipeline.HomeCountry,
			SalaryHourlyMax:  cfg.Pipeline.SalaryHourlyMax,
			SalaryMonthlyMax: cfg.Pipeline.SalaryMonthlyMax,
		}),
	}

	if cfg.Storage.RemoteEnabled() {
		remote, err := store.NewS3Store(ctx, cfg.Storage.Bucket, cfg.Storage.Region, localStore)
		if err != nil {
			log.Printf("S3 unavailable, continuing with local batches only: %v", err)
		} else {
			deps.Remote = remote
			log.Printf("S3 connected, bucket: %s", cfg.Storage.Bucket)
		}
	}

	// Extract and transform runs never open a database connection.
	needsDB := !opts.SkipDB && (opts.Mode == pipeline.ModeFull || opts.Mode == pipeline.ModeLoad)
	if needsDB {
		if err := cfg.Database.Require(); err != nil {
			log.Fatalf("Configuration error: %v", err)
		}
		pgLoader, err := loader.NewPostgresLoader(cfg.Database.DSN(), cfg.Database.TableName, cfg.Pipeline.LoadBatchSize)
		if err != nil {
			log.Fatalf("PostgreSQL connection failed: %v", err)
		}
		defer pgLoader.Close()
		deps.Loader = pgLoader
		log.Println("PostgreSQL connected")

		if cfg.Elasticsearch.Enabled() {
			esLoader, err := loader.NewElasticsearchLoader(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Index)
			if err != nil {
				log.Printf("Elasticsearch unavailable, skipping search indexing: %v", err)
			} else {
				defer esLoader.Close()
				deps.Indexer = esLoader
				log.Printf("Elasticsearch connected, index: %s", cfg.Elasticsearch.Index)
			}
		}
	}

	if _, err := pipeline.New(deps).Run(ctx, opts); err != nil {
		os.Exit(1)
	}
}

// buildOptions validates the flag values and assembles the run options.
func buildOptions(mode, source, startDate, endDate string, allData, skipDB bool, outputCSV, inputFile string) (pipeline.Options, error) {
	opts := pipeline.Options{
		SkipDB:    skipDB,
		CSVPath:   outputCSV,
		InputFile: inputFile,
	}

	switch pipeline.Mode(mode) {
	case pipeline.ModeFull, pipeline.ModeExtract, pipeline.ModeTransform, pipeline.ModeLoad:
		opts.Mode = pipeline.Mode(mode)
	default:
		return opts, fmt.Errorf("unknown mode %q", mode)
	}
	if opts.Mode == pipeline.ModeLoad && inputFile == "" {
		return opts, fmt.Errorf("load mode requires --input-file")
	}

	switch domain.Source(source) {
	case domain.SourceFranceTravail, domain.SourceWelcomeJungle:
		opts.Source = domain.Source(source)
	default:
		return opts, fmt.Errorf("unknown source %q", source)
	}

	dates, err := dateWindow(startDate, endDate, allData)
	if err != nil {
		return opts, err
	}
	opts.Dates = dates
	return opts, nil
}

// dateWindow builds the batch date range: explicit bounds win, --all-data
// clears them, and the default covers the last seven days.
func dateWindow(startDate, endDate string, allData bool) (store.DateRange, error) {
	if allData {
		return store.DateRange{}, nil
	}
	now := time.Now()
	dr := store.DateRange{
		Start: now.AddDate(0, 0, -7).Format("20060102"),
		End:   now.Format("20060102"),
	}
	if startDate != "" {
		token, err := dateToken(startDate)
		if err != nil {
			return store.DateRange{}, err
		}
		dr.Start = token
	}
	if endDate != "" {
		token, err := dateToken(endDate)
		if err != nil {
			return store.DateRange{}, err
		}
		dr.End = token
	}
	if dr.End < dr.Start {
		return store.DateRange{}, fmt.Errorf("end date %s is before start date %s", dr.End, dr.Start)
	}
	return dr, nil
}

func dateToken(value string) (string, error) {
	ts, err := time.Parse("2006-01-02", value)
	if err != nil {
		return "", fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return ts.Format("20060102"), nil
}
