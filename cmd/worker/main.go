package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/datapole/go-etl/internal/common/cleaner"
	"github.com/datapole/go-etl/internal/common/dedup"
	"github.com/datapole/go-etl/internal/common/loader"
	"github.com/datapole/go-etl/internal/common/normalizer"
	"github.com/datapole/go-etl/internal/common/store"
	"github.com/datapole/go-etl/internal/config"
	"github.com/datapole/go-etl/internal/module/worker"
	"github.com/datapole/go-etl/internal/queue"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting ETL Worker Service")

	// Load configuration
	cfg := config.Load()

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

	if err := cfg.Database.Require(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	pgLoader, err := loader.NewPostgresLoader(cfg.Database.DSN(), cfg.Database.TableName, cfg.Pipeline.LoadBatchSize)
	if err != nil {
		log.Fatalf("PostgreSQL connection failed: %v", err)
	}
	defer pgLoader.Close()
	log.Println("PostgreSQL connected")

	if err := pgLoader.EnsureSchema(ctx); err != nil {
		log.Printf("Warning: ensure schema failed: %v", err)
	}

	// Initialize components
	localStore := store.NewLocalStore(cfg.Storage.DataDir)
	norm := normalizer.NewNormalizer(cleaner.NewCleaner(), normalizer.Options{
		HomeCountry:      cfg.Pipeline.HomeCountry,
		SalaryHourlyMax:  cfg.Pipeline.SalaryHourlyMax,
		SalaryMonthlyMax: cfg.Pipeline.SalaryMonthlyMax,
	})
	deduplicator := dedup.NewDeduplicator(rdb, "etl:seen", 30*24*time.Hour)
	consumer := queue.NewConsumer(rdb, cfg.Redis.BatchQueue, 5*time.Second)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	// Start worker pool (consumes batch refs -> normalizes -> loads)
	wg.Add(1)
	go func() {
		defer wg.Done()
		w := worker.NewWorker(consumer, localStore, norm, pgLoader, deduplicator, worker.Config{
			Concurrency: cfg.Worker.Concurrency,
		})
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Worker error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutdown signal received, stopping...")
	cancel()

	// Wait for goroutines to finish
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Graceful shutdown complete")
	case <-time.After(30 * time.Second):
		log.Println("Shutdown timeout, forcing exit")
	}
}
