package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/datapole/go-etl/internal/common/dedup"
	"github.com/datapole/go-etl/internal/common/reconcile"
	"github.com/datapole/go-etl/internal/common/store"
	"github.com/datapole/go-etl/internal/config"
	"github.com/datapole/go-etl/internal/domain"
	"github.com/datapole/go-etl/internal/module"
	"github.com/datapole/go-etl/internal/module/francetravail"
	"github.com/datapole/go-etl/internal/module/welcomejungle"
	"github.com/datapole/go-etl/internal/queue"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	sourceFlag := flag.String("source", "all", "source to collect: france_travail, welcome_jungle or all")
	keywords := flag.String("keywords", "", "search keywords (overrides COLLECT_KEYWORDS)")
	maxPages := flag.Int("max-pages", 0, "page limit per cycle (overrides COLLECT_MAX_PAGES)")
	force := flag.Bool("force", false, "collect even when today's batches already exist")
	once := flag.Bool("once", false, "run one collection cycle and exit")
	flag.Parse()

	log.Println("Starting Collector Service")

	// Load configuration
	cfg := config.Load()
	if *keywords != "" {
		cfg.Collect.Keywords = *keywords
	}
	if *maxPages > 0 {
		cfg.Collect.MaxPages = *maxPages
	}

	// Initialize Redis client
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Test Redis connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	log.Println("Redis connected")

	localStore := store.NewLocalStore(cfg.Storage.DataDir)
	var remoteStore store.Store
	if cfg.Storage.RemoteEnabled() {
		s3Store, err := store.NewS3Store(ctx, cfg.Storage.Bucket, cfg.Storage.Region, localStore)
		if err != nil {
			log.Printf("S3 unavailable, raw batches stay local: %v", err)
		} else {
			remoteStore = s3Store
			log.Printf("S3 connected, bucket: %s", cfg.Storage.Bucket)
		}
	}
	batchStore := store.NewMirrorStore(localStore, remoteStore)

	// Initialize components
	deduplicator := dedup.NewDeduplicator(rdb, "etl:seen", 30*24*time.Hour)
	publisher := queue.NewPublisher(rdb, cfg.Redis.BatchQueue)
	engine := reconcile.NewEngine(localStore, remoteStore)

	collectors, err := buildCollectors(*sourceFlag, cfg, batchStore, deduplicator)
	if err != nil {
		log.Fatalf("%v", err)
	}

	runner := &collectRunner{
		collectors: collectors,
		engine:     engine,
		publisher:  publisher,
		keywords:   cfg.Collect.Keywords,
		force:      *force,
	}

	if *once {
		runner.runCycle(ctx)
		return
	}

	// Schedule recurring cycles; the first one runs immediately so a fresh
	// deployment collects without waiting for the first tick.
	scheduler := cron.New()
	spec := fmt.Sprintf("@every %dh", int(cfg.Collect.Interval.Hours()))
	if _, err := scheduler.AddFunc(spec, func() { runner.runCycle(ctx) }); err != nil {
		log.Fatalf("Cron setup failed: %v", err)
	}
	scheduler.Start()
	log.Printf("Collection scheduled, spec: %s", spec)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runner.runCycle(ctx)
	}()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, stopping...")
	cancel()
	cronCtx := scheduler.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		<-cronCtx.Done()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Graceful shutdown complete")
	case <-time.After(30 * time.Second):
		log.Println("Shutdown timeout, forcing exit")
	}
}

// buildCollectors assembles the collectors for the selected sources.
func buildCollectors(sourceFlag string, cfg *config.Config, batchStore store.Store, deduplicator *dedup.Deduplicator) ([]module.Collector, error) {
	wantAll := sourceFlag == "all"
	var collectors []module.Collector

	if wantAll || sourceFlag == string(domain.SourceFranceTravail) {
		if err := cfg.FranceTravail.Require(); err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
		collectors = append(collectors, francetravail.NewCollector(francetravail.Config{
			ClientID:     cfg.FranceTravail.ClientID,
			ClientSecret: cfg.FranceTravail.ClientSecret,
			Scope:        cfg.FranceTravail.Scope,
			AuthURL:      cfg.FranceTravail.AuthURL,
			APIURL:       cfg.FranceTravail.APIURL,
			Keywords:     cfg.Collect.Keywords,
			MaxPages:     cfg.Collect.MaxPages,
			PageSize:     cfg.Collect.PageSize,
			RequestDelay: cfg.Collect.RequestDelay,
		}, batchStore))
	}
	if wantAll || sourceFlag == string(domain.SourceWelcomeJungle) {
		collectors = append(collectors, welcomejungle.NewCollector(welcomejungle.Config{
			Keywords:     cfg.Collect.Keywords,
			MaxPages:     cfg.Collect.MaxPages,
			RequestDelay: cfg.Collect.RequestDelay,
			UserAgent:    cfg.Collect.UserAgent,
		}, batchStore, deduplicator))
	}
	if len(collectors) == 0 {
		return nil, fmt.Errorf("unknown source %q", sourceFlag)
	}
	return collectors, nil
}

// collectRunner runs every collector once per cycle, skipping sources that
// already collected today, and publishes each saved batch reference.
type collectRunner struct {
	collectors []module.Collector
	engine     *reconcile.Engine
	publisher  *queue.Publisher
	keywords   string
	force      bool
}

func (r *collectRunner) runCycle(ctx context.Context) {
	tag := store.QueryTag(r.keywords)
	today := time.Now().Format("20060102")

	for _, c := range r.collectors {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !r.force {
			if collected, names := r.engine.HasCollected(ctx, c.Source(), today, tag); collected {
				log.Printf("Source %s already collected today (%d batches), skipping", c.Source(), len(names))
				continue
			}
		}

		log.Printf("Running collector: %s", c.Source())
		published := 0
		err := c.CollectWithCallback(ctx, func(ref domain.BatchRef, count int) error {
			if err := r.publisher.Publish(ctx, &ref); err != nil {
				return fmt.Errorf("publish %s: %w", ref.Name, err)
			}
			published++
			return nil
		})
		if err != nil {
			log.Printf("Collector %s error: %v", c.Source(), err)
			continue
		}
		log.Printf("Collector %s finished cycle: %d batches published", c.Source(), published)
	}
}
