package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/datapole/go-etl/internal/domain"
)

var (
	// "2-5 ans", "0 à 2 ans", "5 to 10 years"
	yearsRangeRe = regexp.MustCompile(`(\d+)\s*(?:-|–|à|to)\s*(\d+)\s*(?:ans?\b|years?\b)`)
	// "minimum 3 ans", "plus de 10 ans", "au moins 5 ans", "+ de 10 ans"
	yearsMinRe = regexp.MustCompile(`(?:minimum|\+\s*de|plus\s+de|au\s+moins)\s+(\d+)\s*(?:ans?\b|years?\b)`)
	// "5 ans minimum"
	yearsMinSuffixRe = regexp.MustCompile(`(\d+)\s*ans?\s+minimum`)
	// "3 ans", "3 an(s)", "7 years"
	yearsBareRe = regexp.MustCompile(`(\d+)\s*(?:ans?\b|years?\b)`)
)

// levelRule binds keyword cues to an experience level. Evaluated in
// order, first match wins.
type levelRule struct {
	level domain.ExperienceLevel
	cues  []string
}

var levelRules = []levelRule{
	{domain.LevelEntry, []string{"débutant", "debutant", "junior"}},
	{domain.LevelMid, []string{"confirmé", "confirme"}},
	{domain.LevelSenior, []string{"senior", "sénior", "expérimenté", "experimente"}},
	{domain.LevelExpert, []string{"expert"}},
}

// NormalizeExperience derives an experience band from the dedicated
// experience text, falling back to the title. Explicit year figures win
// over level keywords in each text.
func NormalizeExperience(text, title string) domain.Experience {
	for _, haystack := range []string{strings.ToLower(text), strings.ToLower(title)} {
		if haystack == "" {
			continue
		}
		if exp, ok := parseYears(haystack); ok {
			return exp
		}
		if level, ok := matchLevel(haystack); ok {
			return domain.Experience{Level: level}
		}
	}
	return domain.Experience{Level: domain.LevelNotSpecified}
}

func parseYears(text string) (domain.Experience, bool) {
	if m := yearsRangeRe.FindStringSubmatch(text); m != nil {
		min, _ := strconv.Atoi(m[1])
		max, _ := strconv.Atoi(m[2])
		return domain.Experience{MinYears: min, MaxYears: max, Level: levelForYears(min)}, true
	}
	for _, re := range []*regexp.Regexp{yearsMinRe, yearsMinSuffixRe, yearsBareRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			min, _ := strconv.Atoi(m[1])
			return domain.Experience{MinYears: min, Level: levelForYears(min)}, true
		}
	}
	return domain.Experience{}, false
}

func matchLevel(text string) (domain.ExperienceLevel, bool) {
	for _, rule := range levelRules {
		for _, cue := range rule.cues {
			if strings.Contains(text, cue) {
				return rule.level, true
			}
		}
	}
	return "", false
}

// levelForYears buckets a minimum-years figure the same way postings
// phrase their bands: 0-2 entry, 2-5 mid, 5-10 senior, 10+ expert.
func levelForYears(min int) domain.ExperienceLevel {
	switch {
	case min < 2:
		return domain.LevelEntry
	case min < 5:
		return domain.LevelMid
	case min < 10:
		return domain.LevelSenior
	default:
		return domain.LevelExpert
	}
}
