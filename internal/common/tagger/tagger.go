// Package tagger matches a fixed technology vocabulary against posting
// descriptions. Matching is case-insensitive and whole-word; terms whose
// edges are not word characters (c++, c#, ci/cd) assert boundaries only
// on the word-character side.
package tagger

import (
	"regexp"
	"strings"

	"github.com/datapole/go-etl/internal/domain"
)

// VocabularyVersion identifies the pinned term set. Bump it whenever the
// vocabulary changes so downstream consumers can tell tag sets apart.
const VocabularyVersion = "2019.1"

// vocabularyTerms lists every detected term in a fixed order; matched
// keywords are reported in this order.
var vocabularyTerms = []string{
	// Languages
	"python", "java", "javascript", "c++", "c#", "php", "ruby", "swift",
	// Frameworks
	"django", "flask", "spring", "react", "angular", "vue", "laravel",
	// Databases
	"sql", "postgresql", "mysql", "mongodb", "oracle", "sqlite",
	// Cloud
	"aws", "azure", "gcp", "cloud",
	// Data
	"data science", "machine learning", "deep learning", "ai", "big data",
	// DevOps
	"devops", "docker", "kubernetes", "jenkins", "git", "ci/cd",
	// Methodology
	"agile", "scrum", "kanban",
}

type term struct {
	text string
	re   *regexp.Regexp
}

var vocabulary = compileVocabulary()

func compileVocabulary() []term {
	terms := make([]term, 0, len(vocabularyTerms))
	for _, text := range vocabularyTerms {
		terms = append(terms, term{text: text, re: compileTerm(text)})
	}
	return terms
}

// compileTerm wraps a literal term in word-boundary assertions. A \b next
// to a non-word character can never match, so boundaries are attached
// only where the term edge is a word character.
func compileTerm(text string) *regexp.Regexp {
	pattern := regexp.QuoteMeta(text)
	if isWordChar(text[0]) {
		pattern = `\b` + pattern
	}
	if isWordChar(text[len(text)-1]) {
		pattern = pattern + `\b`
	}
	return regexp.MustCompile(pattern)
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '_'
}

// Tag scans text for vocabulary terms. It returns the matched keywords in
// vocabulary order plus the headline technology flags. Empty text yields
// an empty set and all-false flags.
func Tag(text string) ([]string, domain.TechFlags) {
	var flags domain.TechFlags
	if text == "" {
		return nil, flags
	}
	lower := strings.ToLower(text)

	var found []string
	for _, t := range vocabulary {
		if !t.re.MatchString(lower) {
			continue
		}
		found = append(found, t.text)
		switch t.text {
		case "python":
			flags.Python = true
		case "java":
			flags.Java = true
		case "javascript":
			flags.JavaScript = true
		case "sql":
			flags.SQL = true
		case "aws":
			flags.AWS = true
		case "machine learning":
			flags.MachineLearning = true
		}
	}
	return found, flags
}
