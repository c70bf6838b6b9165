package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the ETL system. It is constructed once
// at process start and passed by reference into each component; components
// never read the environment themselves.
type Config struct {
	Database      DatabaseConfig
	Storage       StorageConfig
	FranceTravail FranceTravailConfig
	Redis         RedisConfig
	Elasticsearch ESConfig
	Pipeline      PipelineConfig
	Collect       CollectConfig
	Worker        WorkerConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
	// Table name for normalized postings
	TableName string
}

// DSN builds the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Name, c.User, c.Password, c.SSLMode)
}

// Require reports an error when database credentials are incomplete.
func (c DatabaseConfig) Require() error {
	if c.Name == "" || c.User == "" || c.Password == "" {
		return fmt.Errorf("database credentials incomplete: DB_NAME, DB_USER and DB_PASSWORD are required")
	}
	return nil
}

type StorageConfig struct {
	// Local directory holding raw/ and processed/ batch trees
	DataDir string
	// S3 bucket for the remote origin; empty disables remote storage
	Bucket string
	Region string
}

// RemoteEnabled reports whether an object-storage origin is configured.
func (c StorageConfig) RemoteEnabled() bool {
	return c.Bucket != ""
}

type FranceTravailConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	AuthURL      string
	APIURL       string
}

// Require reports an error when API credentials are incomplete.
func (c FranceTravailConfig) Require() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("France Travail credentials incomplete: FRANCE_TRAVAIL_CLIENT_ID and FRANCE_TRAVAIL_CLIENT_SECRET are required")
	}
	return nil
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Queue name for batch references
	BatchQueue string
}

type ESConfig struct {
	Addresses []string
	Index     string
}

// Enabled reports whether a search indexer is configured.
func (c ESConfig) Enabled() bool {
	return len(c.Addresses) > 0
}

type PipelineConfig struct {
	// Country assumed when a location resolves to nothing else
	HomeCountry string
	// Number of rows per bulk insert
	LoadBatchSize int
	// Magnitude thresholds for the salary-period fallback: amounts below
	// HourlyMax read as hourly, below MonthlyMax as monthly, else yearly.
	SalaryHourlyMax  float64
	SalaryMonthlyMax float64
}

type CollectConfig struct {
	// Search keywords; empty collects everything under the "all" tag
	Keywords string
	MaxPages int
	PageSize int
	// Delay between page requests
	RequestDelay time.Duration
	// Scheduler interval between collection cycles
	Interval time.Duration
	// User agent for the scraped source
	UserAgent string
}

type WorkerConfig struct {
	// Number of concurrent batch consumers
	Concurrency int
}

// Load creates a Config from the environment, reading .env first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	esAddrs := []string{}
	if url := getEnv("ELASTICSEARCH_URL", ""); url != "" {
		esAddrs = append(esAddrs, url)
	}

	return &Config{
		Database: DatabaseConfig{
			Host:      getEnv("DB_HOST", "localhost"),
			Port:      getEnvInt("DB_PORT", 5432),
			Name:      getEnv("DB_NAME", ""),
			User:      getEnv("DB_USER", ""),
			Password:  getEnv("DB_PASSWORD", ""),
			SSLMode:   getEnv("DB_SSLMODE", "disable"),
			TableName: getEnv("DB_TABLE", "france_travail_jobs"),
		},
		Storage: StorageConfig{
			DataDir: getEnv("DATA_DIR", "data"),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("AWS_REGION", "eu-north-1"),
		},
		FranceTravail: FranceTravailConfig{
			ClientID:     getEnv("FRANCE_TRAVAIL_CLIENT_ID", ""),
			ClientSecret: getEnv("FRANCE_TRAVAIL_CLIENT_SECRET", ""),
			Scope:        getEnv("FRANCE_TRAVAIL_SCOPE", "o2dsoffre api_offresdemploiv2"),
			AuthURL:      getEnv("FRANCE_TRAVAIL_AUTH_URL", "https://francetravail.io/connexion/oauth2/access_token?realm=%2Fpartenaire"),
			APIURL:       getEnv("FRANCE_TRAVAIL_API_URL", "https://api.francetravail.io/partenaire/offresdemploi/v2/offres/search"),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			BatchQueue: getEnv("REDIS_BATCH_QUEUE", "etl:batches"),
		},
		Elasticsearch: ESConfig{
			Addresses: esAddrs,
			Index:     getEnv("ELASTICSEARCH_INDEX", "jobs"),
		},
		Pipeline: PipelineConfig{
			HomeCountry:      getEnv("HOME_COUNTRY", "France"),
			LoadBatchSize:    getEnvInt("LOAD_BATCH_SIZE", 100),
			SalaryHourlyMax:  getEnvFloat("SALARY_HOURLY_MAX", 100),
			SalaryMonthlyMax: getEnvFloat("SALARY_MONTHLY_MAX", 10000),
		},
		Collect: CollectConfig{
			Keywords:     getEnv("COLLECT_KEYWORDS", ""),
			MaxPages:     getEnvInt("COLLECT_MAX_PAGES", 10),
			PageSize:     getEnvInt("COLLECT_PAGE_SIZE", 150),
			RequestDelay: time.Duration(getEnvInt("COLLECT_DELAY_MS", 2000)) * time.Millisecond,
			Interval:     time.Duration(getEnvInt("COLLECT_INTERVAL_HOURS", 6)) * time.Hour,
			UserAgent:    getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvInt("WORKER_CONCURRENCY", 1),
		},
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
