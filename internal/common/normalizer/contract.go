package normalizer

import (
	"strings"

	"github.com/datapole/go-etl/internal/domain"
)

// contractRule binds keyword cues to a standardized contract type.
type contractRule struct {
	contract domain.Contract
	cues     []string
}

// contractRules is evaluated in order; the first matching cue wins. CDI
// stays ahead of CDD because "indéterminé" contains "déterminé", and the
// student contracts stay ahead of the generic part-time/full-time buckets
// so a "Stage (temps plein)" posting reads as an internship.
var contractRules = []contractRule{
	{domain.ContractCDI, []string{"cdi", "indéterminé", "indetermine", "indefinite", "permanent"}},
	{domain.ContractCDD, []string{"cdd", "déterminé", "determine", "fixed-term", "fixed term", "temporary"}},
	{domain.ContractInterim, []string{"intérim", "interim"}},
	{domain.ContractApprenticeship, []string{"apprentissage", "alternance", "apprenticeship"}},
	{domain.ContractInternship, []string{"stage", "internship"}},
	{domain.ContractFreelance, []string{"freelance", "indépendant", "independant", "contractor"}},
	{domain.ContractPartTime, []string{"temps partiel", "part-time", "part time", "part_time"}},
	{domain.ContractFullTime, []string{"temps plein", "full-time", "full time", "full_time"}},
}

// NormalizeContract maps raw contract text and the posting title to the
// standardized contract type. No match resolves to OTHER.
func NormalizeContract(rawText, title string) domain.Contract {
	haystack := strings.ToLower(strings.TrimSpace(rawText + " " + title))
	if haystack == "" {
		return domain.ContractOther
	}
	for _, rule := range contractRules {
		for _, cue := range rule.cues {
			if strings.Contains(haystack, cue) {
				return rule.contract
			}
		}
	}
	return domain.ContractOther
}
