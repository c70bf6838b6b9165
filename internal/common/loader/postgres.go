package loader

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/datapole/go-etl/internal/domain"
)

// insertColumns is the warehouse column set in insert order.
var insertColumns = []string{
	"id", "intitule", "description_clean", "entreprise_clean", "lieu_travail",
	"type_contrat", "contract_type_std", "experience_level",
	"min_salary", "max_salary", "salary_periodicity", "currency",
	"date_creation", "date_actualisation",
	"keyword_count", "has_python", "has_java", "has_javascript", "has_sql",
	"has_aws", "has_machine_learning",
	"etl_timestamp", "source", "extracted_keywords_text",
}

// PostgresLoader loads postings into a PostgreSQL table.
type PostgresLoader struct {
	db        *sql.DB
	tableName string
	batchSize int
}

// NewPostgresLoader opens and verifies the database connection.
func NewPostgresLoader(connStr, tableName string, batchSize int) (*PostgresLoader, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &PostgresLoader{db: db, tableName: tableName, batchSize: batchSize}, nil
}

// EnsureSchema creates the target table if it doesn't exist. An existing
// table is left untouched; column drift surfaces later as an intersection
// warning during Load.
func (l *PostgresLoader) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			intitule TEXT,
			description_clean TEXT,
			entreprise_clean TEXT,
			lieu_travail TEXT,
			type_contrat TEXT,
			contract_type_std TEXT,
			experience_level TEXT,
			min_salary DOUBLE PRECISION,
			max_salary DOUBLE PRECISION,
			salary_periodicity TEXT,
			currency TEXT,
			date_creation TIMESTAMP,
			date_actualisation TIMESTAMP,
			keyword_count INTEGER,
			has_python INTEGER,
			has_java INTEGER,
			has_javascript INTEGER,
			has_sql INTEGER,
			has_aws INTEGER,
			has_machine_learning INTEGER,
			etl_timestamp TIMESTAMP,
			source TEXT,
			extracted_keywords_text TEXT
		)
	`, l.tableName)

	if _, err := l.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure table %s: %w", l.tableName, err)
	}
	return nil
}

// Load inserts the postings whose ids are not yet in the table. Incoming
// duplicates are dropped keeping the first occurrence. Rows are written in
// batches, one transaction per batch; a failed batch is logged and skipped
// so one bad batch never loses the rest of the run.
func (l *PostgresLoader) Load(ctx context.Context, postings []*domain.Posting) (int, error) {
	if len(postings) == 0 {
		return 0, nil
	}

	unique := dedupeByID(postings)
	if dropped := len(postings) - len(unique); dropped > 0 {
		log.Printf("[Loader] Dropped %d duplicate ids from the incoming set", dropped)
	}

	columns, err := l.usableColumns(ctx)
	if err != nil {
		return 0, err
	}

	existing, err := l.existingIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list existing ids: %w", err)
	}

	fresh := filterNew(unique, existing)
	if len(fresh) == 0 {
		log.Printf("[Loader] All %d records already exist in %s", len(unique), l.tableName)
		return 0, nil
	}
	log.Printf("[Loader] %d of %d records are new", len(fresh), len(unique))

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		l.tableName, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	etlTime := time.Now()
	inserted := 0
	for start := 0; start < len(fresh); start += l.batchSize {
		end := min(start+l.batchSize, len(fresh))
		n, err := l.insertBatch(ctx, query, columns, fresh[start:end], etlTime)
		if err != nil {
			log.Printf("[Loader] Batch %d failed: %v", start/l.batchSize, err)
			continue
		}
		inserted += n
	}

	log.Printf("[Loader] Inserted %d new records into %s", inserted, l.tableName)
	return inserted, nil
}

func (l *PostgresLoader) insertBatch(ctx context.Context, query string, columns []string, postings []*domain.Posting, etlTime time.Time) (int, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range postings {
		row := rowValues(p, etlTime)
		args := make([]any, len(columns))
		for i, col := range columns {
			args[i] = row[col]
		}
		// A failed insert aborts the transaction, so the batch fails as a
		// unit and the caller moves on to the next one.
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert record %s: %w", p.ExternalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(postings), nil
}

// usableColumns intersects the expected insert columns with the columns
// the live table actually has, warning about drift in either direction.
func (l *PostgresLoader) usableColumns(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_name = $1`, l.tableName)
	if err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", l.tableName, err)
	}
	defer rows.Close()

	actual := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		actual[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	if len(actual) == 0 {
		return nil, fmt.Errorf("table %s does not exist", l.tableName)
	}

	columns := intersectColumns(insertColumns, actual)
	if len(columns) < len(insertColumns) {
		missing := []string{}
		for _, col := range insertColumns {
			if !actual[col] {
				missing = append(missing, col)
			}
		}
		log.Printf("[Loader] Table %s is missing columns %v, loading the %d common ones", l.tableName, missing, len(columns))
	}
	return columns, nil
}

func (l *PostgresLoader) existingIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := l.db.QueryContext(ctx, fmt.Sprintf("SELECT id FROM %s", l.tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// Close closes the database connection.
func (l *PostgresLoader) Close() error {
	return l.db.Close()
}

// dedupeByID drops later occurrences of an id, keeping input order.
func dedupeByID(postings []*domain.Posting) []*domain.Posting {
	seen := make(map[string]bool, len(postings))
	unique := make([]*domain.Posting, 0, len(postings))
	for _, p := range postings {
		if p.ExternalID == "" || seen[p.ExternalID] {
			continue
		}
		seen[p.ExternalID] = true
		unique = append(unique, p)
	}
	return unique
}

// filterNew keeps postings whose ids are not in the existing set.
func filterNew(postings []*domain.Posting, existing map[string]bool) []*domain.Posting {
	fresh := make([]*domain.Posting, 0, len(postings))
	for _, p := range postings {
		if !existing[p.ExternalID] {
			fresh = append(fresh, p)
		}
	}
	return fresh
}

func intersectColumns(expected []string, actual map[string]bool) []string {
	columns := make([]string, 0, len(expected))
	for _, col := range expected {
		if actual[col] {
			columns = append(columns, col)
		}
	}
	return columns
}

// rowValues maps a posting onto warehouse columns. Unstated values become
// NULL rather than zero so queries can tell "absent" from "0".
func rowValues(p *domain.Posting, etlTime time.Time) map[string]any {
	return map[string]any{
		"id":                      p.ExternalID,
		"intitule":                p.Title,
		"description_clean":       p.Description,
		"entreprise_clean":        p.Company,
		"lieu_travail":            locationText(p.Location),
		"type_contrat":            p.ContractRaw,
		"contract_type_std":       string(p.ContractStd),
		"experience_level":        string(p.Experience.Level),
		"min_salary":              nullFloat(p.Salary.Min),
		"max_salary":              nullFloat(p.Salary.Max),
		"salary_periodicity":      nullString(string(p.Salary.Period)),
		"currency":                nullString(p.Salary.Currency),
		"date_creation":           nullTime(p.CreatedAt),
		"date_actualisation":      nullTime(p.UpdatedAt),
		"keyword_count":           len(p.Keywords),
		"has_python":              boolInt(p.Flags.Python),
		"has_java":                boolInt(p.Flags.Java),
		"has_javascript":          boolInt(p.Flags.JavaScript),
		"has_sql":                 boolInt(p.Flags.SQL),
		"has_aws":                 boolInt(p.Flags.AWS),
		"has_machine_learning":    boolInt(p.Flags.MachineLearning),
		"etl_timestamp":           etlTime,
		"source":                  p.Source,
		"extracted_keywords_text": strings.Join(p.Keywords, ","),
	}
}

// locationText flattens the structured location to the display text the
// warehouse stores.
func locationText(loc domain.Location) string {
	if loc.Label != "" {
		return loc.Label
	}
	return loc.City
}

func nullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
