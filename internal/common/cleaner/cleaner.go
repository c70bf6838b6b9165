package cleaner

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var whitespace = regexp.MustCompile(`\s+`)

// Cleaner sanitizes raw posting text using Bluemonday. Source descriptions
// arrive as HTML fragments; the warehouse stores them as plain text.
type Cleaner struct {
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

// NewCleaner creates a cleaner that keeps basic formatting but strips
// dangerous elements. Use it for content kept in raw batch archives.
func NewCleaner() *Cleaner {
	policy := bluemonday.NewPolicy()

	// Allow basic text formatting
	policy.AllowElements("p", "br", "div", "span")
	policy.AllowElements("strong", "b", "em", "i", "u")
	policy.AllowElements("ul", "ol", "li")
	policy.AllowElements("h1", "h2", "h3", "h4", "h5", "h6")

	// Allow links but strip javascript:
	policy.AllowAttrs("href").OnElements("a")
	policy.AllowRelativeURLs(true)
	policy.RequireParseableURLs(true)
	policy.AllowURLSchemes("http", "https", "mailto")

	return &Cleaner{policy: policy, strict: bluemonday.StrictPolicy()}
}

// NewStrictCleaner creates a cleaner that strips ALL HTML.
func NewStrictCleaner() *Cleaner {
	strict := bluemonday.StrictPolicy()
	return &Cleaner{policy: strict, strict: strict}
}

// Clean sanitizes HTML content, keeping allowed formatting.
func (c *Cleaner) Clean(raw string) string {
	return c.policy.Sanitize(raw)
}

// CleanToText removes all HTML, unescapes entities and collapses runs of
// whitespace to single spaces. This is the warehouse form of free text.
func (c *Cleaner) CleanToText(raw string) string {
	// Keep a word boundary where a tag separated two text runs.
	text := strings.ReplaceAll(raw, "<", " <")
	text = c.strict.Sanitize(text)
	text = html.UnescapeString(text)
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// CleanMap sanitizes all string values in a raw record, recursing into
// nested objects.
func (c *Cleaner) CleanMap(data map[string]any) map[string]any {
	result := make(map[string]any)
	for k, v := range data {
		switch val := v.(type) {
		case string:
			result[k] = c.Clean(val)
		case map[string]any:
			result[k] = c.CleanMap(val)
		default:
			result[k] = v
		}
	}
	return result
}
