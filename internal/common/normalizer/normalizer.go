// Package normalizer converts raw posting records into the canonical
// schema. Every normalization function is pure and total: malformed input
// yields the unspecified sentinel for that field, never an error.
package normalizer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/datapole/go-etl/internal/common/cleaner"
	"github.com/datapole/go-etl/internal/common/rawfield"
	"github.com/datapole/go-etl/internal/domain"
)

// companyUnspecified is the sentinel stored when no company name resolves.
const companyUnspecified = "Entreprise non spécifiée"

// Options tune normalization policy. Zero values fall back to the defaults
// used across the pipeline.
type Options struct {
	// HomeCountry is assumed when a location resolves to nothing else.
	HomeCountry string
	// Salary-period magnitude fallback thresholds, applied only when no
	// period cue is found in the text.
	SalaryHourlyMax  float64
	SalaryMonthlyMax float64
}

func (o Options) withDefaults() Options {
	if o.HomeCountry == "" {
		o.HomeCountry = "France"
	}
	if o.SalaryHourlyMax == 0 {
		o.SalaryHourlyMax = 100
	}
	if o.SalaryMonthlyMax == 0 {
		o.SalaryMonthlyMax = 10000
	}
	return o
}

// Normalizer converts RawPosting records to normalized Postings.
type Normalizer struct {
	cleaner *cleaner.Cleaner
	opts    Options
}

// NewNormalizer creates a normalizer using the given cleaner for free-text
// fields.
func NewNormalizer(cl *cleaner.Cleaner, opts Options) *Normalizer {
	return &Normalizer{cleaner: cl, opts: opts.withDefaults()}
}

// Normalize converts one raw record to a Posting. The only error condition
// is a record without a usable external id; every malformed field inside
// the record degrades to its sentinel value instead.
func (n *Normalizer) Normalize(raw *domain.RawPosting) (*domain.Posting, error) {
	data := raw.RawData

	p := &domain.Posting{
		Source:      string(raw.Source),
		CollectedAt: raw.ExtractedAt,
	}

	switch raw.Source {
	case domain.SourceFranceTravail:
		n.normalizeFranceTravail(p, data)
	case domain.SourceWelcomeJungle:
		n.normalizeWelcomeJungle(p, data)
	default:
		n.normalizeGeneric(p, data)
	}

	if p.ExternalID == "" {
		return nil, fmt.Errorf("record from %s has no external id", raw.Source)
	}
	return p, nil
}

// normalizeFranceTravail handles records from the France Travail API.
// Fields follow the offres/v2 search response shape.
func (n *Normalizer) normalizeFranceTravail(p *domain.Posting, data map[string]any) {
	p.ExternalID = getString(data, "id")
	p.Title = n.cleaner.CleanToText(getString(data, "intitule", "title"))
	p.Description = n.cleaner.CleanToText(getString(data, "description"))

	p.Company = n.cleaner.CleanToText(NormalizeCompany(rawfield.Parse(data["entreprise"])))
	p.Location = NormalizeLocation(rawfield.Parse(data["lieuTravail"]), n.opts.HomeCountry)

	p.ContractRaw = getString(data, "typeContrat")
	contractText := strings.TrimSpace(p.ContractRaw + " " + getString(data, "typeContratLibelle") + " " + getString(data, "natureContrat"))
	p.ContractStd = NormalizeContract(contractText, p.Title)

	p.Salary = NormalizeSalary(salaryText(rawfield.Parse(data["salaire"])), n.salaryPolicy())

	p.Experience = NormalizeExperience(getString(data, "experienceLibelle", "experience"), p.Title)

	p.CreatedAt = parseTime(getString(data, "dateCreation"))
	p.UpdatedAt = parseTime(getString(data, "dateActualisation"))
	p.URL = rawfield.Parse(data["origineOffre"]).Get("urlOrigine")
}

// normalizeWelcomeJungle handles records produced by the job-board scraper.
func (n *Normalizer) normalizeWelcomeJungle(p *domain.Posting, data map[string]any) {
	p.ExternalID = getString(data, "id", "reference")
	p.Title = n.cleaner.CleanToText(getString(data, "title", "intitule"))
	p.Description = n.cleaner.CleanToText(getString(data, "description"))

	p.Company = n.cleaner.CleanToText(NormalizeCompany(rawfield.Parse(data["company"])))
	p.Location = NormalizeLocation(rawfield.Parse(data["location"]), n.opts.HomeCountry)

	p.ContractRaw = getString(data, "contract_type")
	p.ContractStd = NormalizeContract(p.ContractRaw, p.Title)

	p.Salary = NormalizeSalary(getString(data, "salary"), n.salaryPolicy())

	p.Experience = NormalizeExperience(getString(data, "experience"), p.Title)

	p.CreatedAt = parseTime(getString(data, "published_at", "scraped_at"))
	p.URL = getString(data, "url")
}

// normalizeGeneric is a best-effort mapping for records of unknown origin.
func (n *Normalizer) normalizeGeneric(p *domain.Posting, data map[string]any) {
	p.ExternalID = getString(data, "id", "external_id", "reference")
	p.Title = n.cleaner.CleanToText(getString(data, "title", "intitule", "name"))
	p.Description = n.cleaner.CleanToText(getString(data, "description", "content"))
	p.Company = n.cleaner.CleanToText(NormalizeCompany(rawfield.Parse(firstPresent(data, "company", "entreprise"))))
	p.Location = NormalizeLocation(rawfield.Parse(firstPresent(data, "location", "lieuTravail")), n.opts.HomeCountry)
	p.ContractRaw = getString(data, "contract_type", "typeContrat")
	p.ContractStd = NormalizeContract(p.ContractRaw, p.Title)
	p.Salary = NormalizeSalary(getString(data, "salary", "salaire"), n.salaryPolicy())
	p.Experience = NormalizeExperience(getString(data, "experience"), p.Title)
	p.CreatedAt = parseTime(getString(data, "created_at", "published_at"))
	p.URL = getString(data, "url")
}

// NormalizeCompany resolves the company name from its raw shapes: an object
// with a "nom"/"name" key, a plain string, or nothing.
func NormalizeCompany(field rawfield.Field) string {
	switch {
	case field.IsObject():
		if nom := field.Get("nom"); nom != "" {
			return nom
		}
		if name := field.Get("name"); name != "" {
			return name
		}
		return companyUnspecified
	case field.Kind == rawfield.KindText:
		return field.Text
	default:
		return companyUnspecified
	}
}

// salaryText flattens the raw salary field to one searchable string. The
// API carries salary as an object whose label and comment lines hold the
// amounts; the scraper carries plain text.
func salaryText(field rawfield.Field) string {
	if field.IsObject() {
		parts := []string{}
		for _, key := range []string{"libelle", "commentaire", "complement1", "complement2"} {
			if v := field.Get(key); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, " ")
	}
	return field.Text
}

func (n *Normalizer) salaryPolicy() SalaryPolicy {
	return SalaryPolicy{HourlyMax: n.opts.SalaryHourlyMax, MonthlyMax: n.opts.SalaryMonthlyMax}
}

// firstPresent returns the first value present under the given keys.
func firstPresent(data map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := data[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// getString extracts a trimmed string from data, trying keys in order.
func getString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if val, ok := data[key]; ok {
			switch v := val.(type) {
			case string:
				if v != "" {
					return strings.TrimSpace(v)
				}
			case float64:
				return fmt.Sprintf("%.0f", v)
			case int:
				return strconv.Itoa(v)
			}
		}
	}
	return ""
}

// parseTime parses the date formats the sources emit. Unparseable input
// yields the zero time, which loads as NULL.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"02/01/2006",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
