package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/datapole/go-etl/internal/domain"
)

// csvColumns mirrors the warehouse insert order so CSV exports line up
// with database rows.
var csvColumns = []string{
	"id", "intitule", "description_clean", "entreprise_clean", "lieu_travail",
	"type_contrat", "contract_type_std", "experience_level",
	"min_salary", "max_salary", "salary_periodicity", "currency",
	"date_creation", "date_actualisation",
	"keyword_count", "has_python", "has_java", "has_javascript", "has_sql",
	"has_aws", "has_machine_learning",
	"etl_timestamp", "source", "extracted_keywords_text",
}

// postingsCSV renders postings as CSV in warehouse column order. Unstated
// values become empty cells.
func postingsCSV(postings []*domain.Posting, etlTime time.Time) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvColumns); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	for _, p := range postings {
		if err := w.Write(csvRow(p, etlTime)); err != nil {
			return nil, fmt.Errorf("writing row %s: %w", p.ExternalID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing: %w", err)
	}
	return buf.Bytes(), nil
}

func csvRow(p *domain.Posting, etlTime time.Time) []string {
	location := p.Location.Label
	if location == "" {
		location = p.Location.City
	}
	return []string{
		p.ExternalID,
		p.Title,
		p.Description,
		p.Company,
		location,
		p.ContractRaw,
		string(p.ContractStd),
		string(p.Experience.Level),
		csvFloat(p.Salary.Min),
		csvFloat(p.Salary.Max),
		string(p.Salary.Period),
		p.Salary.Currency,
		csvTime(p.CreatedAt),
		csvTime(p.UpdatedAt),
		strconv.Itoa(len(p.Keywords)),
		csvBool(p.Flags.Python),
		csvBool(p.Flags.Java),
		csvBool(p.Flags.JavaScript),
		csvBool(p.Flags.SQL),
		csvBool(p.Flags.AWS),
		csvBool(p.Flags.MachineLearning),
		etlTime.Format(time.RFC3339),
		p.Source,
		strings.Join(p.Keywords, ","),
	}
}

func csvFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func csvTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func csvBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
