package welcomejungle

import "time"

const DefaultBaseURL = "https://www.welcometothejungle.com"

// Config holds Welcome to the Jungle scraper configuration
type Config struct {
	BaseURL string
	// Search page; defaults to BaseURL + /fr/jobs
	SearchURL string
	// Search keywords passed as the query parameter
	Keywords     string
	MaxPages     int
	RequestDelay time.Duration
	UserAgent    string
}
