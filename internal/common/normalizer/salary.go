package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/datapole/go-etl/internal/domain"
)

// SalaryPolicy holds the magnitude thresholds for the period fallback:
// when no period cue is found, amounts below HourlyMax read as hourly,
// below MonthlyMax as monthly, and yearly above that.
type SalaryPolicy struct {
	HourlyMax  float64
	MonthlyMax float64
}

// periodRule binds keyword cues to a salary period. Negotiable cues come
// first so "selon profil" wins over any period word in the same text.
type periodRule struct {
	period domain.SalaryPeriod
	cues   []string
}

var periodRules = []periodRule{
	{domain.PeriodNegotiable, []string{"à négocier", "a negocier", "négociable", "negociable", "selon profil", "negotiable", "competitive"}},
	{domain.PeriodYearly, []string{"annuel", "par an", "/an", "per year", "yearly"}},
	{domain.PeriodMonthly, []string{"mensuel", "par mois", "/mois", "per month", "monthly"}},
	{domain.PeriodWeekly, []string{"hebdomadaire", "par semaine", "weekly"}},
	{domain.PeriodDaily, []string{"journalier", "par jour", "/jour", "tjm", "daily"}},
	{domain.PeriodHourly, []string{"horaire", "de l'heure", "par heure", "/h", "hourly"}},
}

var (
	// "35 000 - 40 000", "35k-40k", "de 35 000,00 Euros à 40 000,00 Euros";
	// an optional currency word may sit between the bounds.
	salaryRangeRe = regexp.MustCompile(`(\d+(?:[\s\x{00a0}\x{202f}]\d{3})*(?:[.,]\d+)?)\s*(k)?\s*(?:€|\$|£|euros?\b|eur\b)?\s*(?:-|–|à|to)\s*(\d+(?:[\s\x{00a0}\x{202f}]\d{3})*(?:[.,]\d+)?)\s*(k)?`)
	// A single amount counts only when a currency marker follows it, so
	// "sur 12 mois" never reads as a salary.
	salaryAmountRe = regexp.MustCompile(`(\d+(?:[\s\x{00a0}\x{202f}]\d{3})*(?:[.,]\d+)?)\s*(k)?\s*(?:€|\$|£|euros?\b|eur\b)`)
	// "£50,000", "$60k": symbol before the amount.
	salaryLeadingRe = regexp.MustCompile(`(?:€|\$|£)\s*(\d+(?:[\s\x{00a0}\x{202f}]\d{3})*(?:[.,]\d+)?)\s*(k)?`)
)

// NormalizeSalary parses raw salary text into a range, currency and
// period. Unparseable or empty input yields the zero Salary. The currency
// defaults to EUR whenever anything at all was parsed; GBP and USD are
// detected by symbol.
func NormalizeSalary(text string, policy SalaryPolicy) domain.Salary {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Salary{}
	}
	lower := strings.ToLower(text)

	s := domain.Salary{}
	if m := salaryRangeRe.FindStringSubmatch(lower); m != nil {
		s.Min = parseAmount(m[1], m[2] != "")
		s.Max = parseAmount(m[3], m[4] != "")
		// "35 à 40k€" puts the k on one bound only; share it with the
		// other bound unless that bound is already in the thousands.
		if m[2] == "" && m[4] != "" && s.Min < 1000 {
			s.Min *= 1000
		}
		if m[4] == "" && m[2] != "" && s.Max < 1000 {
			s.Max *= 1000
		}
	} else if amounts := salaryAmountRe.FindAllStringSubmatch(lower, -1); len(amounts) > 0 {
		s.Min = parseAmount(amounts[0][1], amounts[0][2] != "")
		if len(amounts) > 1 {
			s.Max = parseAmount(amounts[1][1], amounts[1][2] != "")
		}
	} else if amounts := salaryLeadingRe.FindAllStringSubmatch(lower, -1); len(amounts) > 0 {
		s.Min = parseAmount(amounts[0][1], amounts[0][2] != "")
		if len(amounts) > 1 {
			s.Max = parseAmount(amounts[1][1], amounts[1][2] != "")
		}
	}

	for _, rule := range periodRules {
		for _, cue := range rule.cues {
			if strings.Contains(lower, cue) {
				s.Period = rule.period
				break
			}
		}
		if s.Period != "" {
			break
		}
	}
	if s.Period == "" && (s.Min > 0 || s.Max > 0) {
		s.Period = policy.classify(maxAmount(s))
	}

	// Nothing recognized at all: leave the salary unset.
	if s.Min == 0 && s.Max == 0 && s.Period == "" {
		return domain.Salary{}
	}

	switch {
	case strings.Contains(text, "£"):
		s.Currency = "GBP"
	case strings.Contains(text, "$"):
		s.Currency = "USD"
	default:
		s.Currency = "EUR"
	}
	return s
}

func (p SalaryPolicy) classify(amount float64) domain.SalaryPeriod {
	switch {
	case amount < p.HourlyMax:
		return domain.PeriodHourly
	case amount < p.MonthlyMax:
		return domain.PeriodMonthly
	default:
		return domain.PeriodYearly
	}
}

func maxAmount(s domain.Salary) float64 {
	if s.Max > s.Min {
		return s.Max
	}
	return s.Min
}

// parseAmount turns a captured numeric token into a value. Spaces are
// group separators; a comma followed by exactly three digits is a group
// separator too ("50,000"), any other comma is a decimal point ("11,88").
// A "k" suffix multiplies by 1000.
func parseAmount(token string, k bool) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == ',' || r == '.' {
			return r
		}
		return -1
	}, token)
	if parts := strings.Split(cleaned, ","); len(parts) > 1 {
		grouped := true
		for _, p := range parts[1:] {
			if len(p) != 3 || strings.Contains(p, ".") {
				grouped = false
				break
			}
		}
		if grouped {
			cleaned = strings.Join(parts, "")
		} else {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	if k {
		f *= 1000
	}
	return f
}
