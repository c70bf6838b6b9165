package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want 5432", cfg.Database.Port)
	}
	if cfg.Database.TableName != "france_travail_jobs" {
		t.Errorf("Database.TableName = %q, want france_travail_jobs", cfg.Database.TableName)
	}
	if cfg.Storage.DataDir != "data" {
		t.Errorf("Storage.DataDir = %q, want data", cfg.Storage.DataDir)
	}
	if cfg.Storage.RemoteEnabled() {
		t.Error("RemoteEnabled() = true without S3_BUCKET set")
	}
	if cfg.Elasticsearch.Enabled() {
		t.Error("Elasticsearch.Enabled() = true without ELASTICSEARCH_URL set")
	}
	if cfg.Redis.BatchQueue != "etl:batches" {
		t.Errorf("Redis.BatchQueue = %q, want etl:batches", cfg.Redis.BatchQueue)
	}
	if cfg.Pipeline.HomeCountry != "France" {
		t.Errorf("Pipeline.HomeCountry = %q, want France", cfg.Pipeline.HomeCountry)
	}
	if cfg.Pipeline.SalaryHourlyMax != 100 || cfg.Pipeline.SalaryMonthlyMax != 10000 {
		t.Errorf("salary thresholds = %v/%v, want 100/10000",
			cfg.Pipeline.SalaryHourlyMax, cfg.Pipeline.SalaryMonthlyMax)
	}
	if cfg.Collect.PageSize != 150 {
		t.Errorf("Collect.PageSize = %d, want 150", cfg.Collect.PageSize)
	}
	if cfg.Collect.RequestDelay != 2*time.Second {
		t.Errorf("Collect.RequestDelay = %v, want 2s", cfg.Collect.RequestDelay)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("S3_BUCKET", "data-lake-brut")
	t.Setenv("ELASTICSEARCH_URL", "http://search:9200")
	t.Setenv("SALARY_MONTHLY_MAX", "8000")

	cfg := Load()

	if cfg.Database.Host != "db.internal" || cfg.Database.Port != 5433 {
		t.Errorf("database override not applied: %s:%d", cfg.Database.Host, cfg.Database.Port)
	}
	if !cfg.Storage.RemoteEnabled() || cfg.Storage.Bucket != "data-lake-brut" {
		t.Errorf("Storage.Bucket = %q, want data-lake-brut", cfg.Storage.Bucket)
	}
	if !cfg.Elasticsearch.Enabled() {
		t.Error("Elasticsearch.Enabled() = false with ELASTICSEARCH_URL set")
	}
	if cfg.Pipeline.SalaryMonthlyMax != 8000 {
		t.Errorf("SalaryMonthlyMax = %v, want 8000", cfg.Pipeline.SalaryMonthlyMax)
	}
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "localhost", Port: 5432, Name: "jobs",
		User: "etl", Password: "secret", SSLMode: "disable",
	}
	want := "host=localhost port=5432 dbname=jobs user=etl password=secret sslmode=disable"
	if got := db.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestRequire(t *testing.T) {
	db := DatabaseConfig{Host: "localhost", Port: 5432}
	if err := db.Require(); err == nil {
		t.Error("DatabaseConfig.Require() = nil with missing credentials")
	}
	db.Name, db.User, db.Password = "jobs", "etl", "secret"
	if err := db.Require(); err != nil {
		t.Errorf("DatabaseConfig.Require() = %v with full credentials", err)
	}

	ft := FranceTravailConfig{ClientID: "id"}
	if err := ft.Require(); err == nil {
		t.Error("FranceTravailConfig.Require() = nil with missing secret")
	}
	ft.ClientSecret = "secret"
	if err := ft.Require(); err != nil {
		t.Errorf("FranceTravailConfig.Require() = %v with full credentials", err)
	}
}
