package welcomejungle

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// The site rewrites its CSS class names on every deploy, so each field
// tries a cascade of selectors and falls back to what the URL path encodes.
var (
	titleSelectors = []string{
		`h1[data-testid="job-title"]`,
		`h1.ais-Highlight`,
		`h1`,
	}
	companySelectors = []string{
		`a[data-testid="company-link"]`,
		`div.sc-gFGZVQ`,
		`meta[property="og:site_name"]`,
	}
	contractSelectors = []string{
		`div[data-testid="job-contract"]`,
		`span.sc-jIZahH`,
	}
	salarySelectors = []string{
		`div[data-testid="job-salary"]`,
	}
	experienceSelectors = []string{
		`div[data-testid="job-experience"]`,
	}
	descriptionSelectors = []string{
		`div[data-testid="job-description"]`,
		`section[data-testid="job-section"]`,
		`main`,
	}
)

// contractLabels maps tokens found in titles, URLs or contract blocks to
// the label stored in the raw record
var contractLabels = []struct {
	token string
	label string
}{
	{"cdi", "CDI"},
	{"cdd", "CDD"},
	{"stage", "Stage"},
	{"alternance", "Alternance"},
	{"freelance", "Freelance"},
	{"interim", "Intérim"},
	{"temps partiel", "Temps partiel"},
	{"temps plein", "Temps plein"},
}

// commonCities are matched against page text and URL slugs when no
// dedicated location block exists
var commonCities = []string{
	"paris", "lyon", "marseille", "bordeaux", "lille",
	"toulouse", "nantes", "strasbourg", "montpellier", "nice",
}

var (
	hexIDRe  = regexp.MustCompile(`^[a-f0-9]{8,}$`)
	postalRe = regexp.MustCompile(`\b\d{5}\b`)
)

// parseJobPage extracts one raw job record from a job page
func parseJobPage(jobURL string, root *goquery.Selection) map[string]any {
	title := extractTitle(root, jobURL)
	record := map[string]any{
		"reference":     referenceFromURL(jobURL),
		"url":           jobURL,
		"title":         title,
		"company":       extractCompany(root, jobURL),
		"contract_type": extractContract(root, jobURL, title),
		"description":   extractDescription(root),
		"scraped_at":    time.Now().Format(time.RFC3339),
	}
	if location := extractLocation(root, jobURL); location != "" {
		record["location"] = location
	}
	if salary := firstText(root, salarySelectors); salary != "" {
		record["salary"] = salary
	}
	if experience := firstText(root, experienceSelectors); experience != "" {
		record["experience"] = experience
	}
	return record
}

// referenceFromURL derives a stable posting identifier from the job page
// URL. The last path segment carries the slug and the site's short id.
func referenceFromURL(jobURL string) string {
	segments := pathSegments(jobURL)
	if len(segments) == 0 {
		return jobURL
	}
	return segments[len(segments)-1]
}

func extractTitle(root *goquery.Selection, jobURL string) string {
	for _, sel := range titleSelectors {
		title := selectorText(root, sel)
		if title != "" && !isPlaceholderTitle(title) {
			return title
		}
	}
	if title := titleFromSlug(jobURL); title != "" {
		return title
	}
	if title := selectorText(root, `meta[property="og:title"]`); title != "" && !isPlaceholderTitle(title) {
		return title
	}
	return "Offre d'emploi"
}

func isPlaceholderTitle(title string) bool {
	return strings.Contains(strings.ToLower(title), "offre d'emploi")
}

// titleFromSlug rebuilds a title from the last URL segment; slugs look like
// "data-scientist_paris_Hk2lR9".
func titleFromSlug(jobURL string) string {
	segments := pathSegments(jobURL)
	if len(segments) == 0 {
		return ""
	}
	slug := segments[len(segments)-1]
	if base, _, found := strings.Cut(slug, "_"); found {
		slug = base
	}
	if len(slug) <= 5 || isDigits(slug) || hexIDRe.MatchString(slug) {
		return ""
	}
	return titleCase(strings.ReplaceAll(slug, "-", " "))
}

func extractCompany(root *goquery.Selection, jobURL string) string {
	if company := companyFromURL(jobURL); company != "" {
		return company
	}
	for _, sel := range companySelectors {
		company := selectorText(root, sel)
		if company != "" && company != "Welcome to the Jungle" {
			return company
		}
	}
	return "Entreprise non spécifiée"
}

// companyFromURL reads the segment after "companies" in the job page path
func companyFromURL(jobURL string) string {
	segments := pathSegments(jobURL)
	for i, segment := range segments {
		if segment != "companies" || i+1 >= len(segments) {
			continue
		}
		slug := segments[i+1]
		if len(slug) > 2 && !isDigits(slug) && !hexIDRe.MatchString(slug) {
			return titleCase(strings.ReplaceAll(slug, "-", " "))
		}
	}
	return ""
}

func extractLocation(root *goquery.Selection, jobURL string) string {
	if location := selectorText(root, `div[data-testid="job-location"]`); location != "" {
		return location
	}

	// Generic blocks count as a location only when they carry a known city
	// or a postal code
	found := ""
	root.Find(`span.sc-jIZahH, div.sc-gFGZVQ`).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := strings.TrimSpace(el.Text())
		if looksLikeLocation(text) {
			found = text
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	lower := strings.ToLower(jobURL)
	for _, city := range commonCities {
		if strings.Contains(lower, city) {
			return titleCase(city)
		}
	}
	return ""
}

func looksLikeLocation(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, city := range commonCities {
		if strings.Contains(lower, city) {
			return true
		}
	}
	return postalRe.MatchString(text)
}

func extractContract(root *goquery.Selection, jobURL, title string) string {
	haystack := strings.ToLower(title + " " + jobURL)
	for _, c := range contractLabels {
		if strings.Contains(haystack, c.token) {
			return c.label
		}
	}
	for _, sel := range contractSelectors {
		text := strings.ToLower(selectorText(root, sel))
		for _, c := range contractLabels {
			if strings.Contains(text, c.token) {
				return c.label
			}
		}
	}
	// The site lists mostly permanent positions
	return "CDI"
}

// extractDescription returns the job description as HTML; cleaning happens
// downstream
func extractDescription(root *goquery.Selection) string {
	for _, sel := range descriptionSelectors {
		el := root.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if html, err := el.Html(); err == nil && strings.TrimSpace(html) != "" {
			return html
		}
	}
	return ""
}

// selectorText reads the first match, following the content attribute for
// meta selectors
func selectorText(root *goquery.Selection, sel string) string {
	el := root.Find(sel).First()
	if el.Length() == 0 {
		return ""
	}
	if strings.HasPrefix(sel, "meta[") {
		content, _ := el.Attr("content")
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(el.Text())
}

func firstText(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := selectorText(root, sel); text != "" {
			return text
		}
	}
	return ""
}

func pathSegments(jobURL string) []string {
	u, err := url.Parse(jobURL)
	if err != nil {
		return nil
	}
	var segments []string
	for _, part := range strings.Split(u.Path, "/") {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

func titleCase(s string) string {
	return cases.Title(language.French).String(s)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
