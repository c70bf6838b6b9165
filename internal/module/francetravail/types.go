package francetravail

import "time"

// Config holds France Travail API configuration
type Config struct {
	ClientID     string
	ClientSecret string
	// OAuth2 scope; defaults to the offres d'emploi v2 scope
	Scope   string
	AuthURL string
	APIURL  string
	// Search keywords (motsCles); empty collects everything
	Keywords string
	// INSEE commune code to center the search on, with Distance in km
	Commune      string
	Distance     int
	MaxPages     int
	PageSize     int
	RequestDelay time.Duration
}

// tokenResponse is the OAuth2 token endpoint response
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// searchResponse is the offres/search response envelope. Only the result
// count matters here; batches persist the raw payload untouched.
type searchResponse struct {
	Resultats []map[string]any `json:"resultats"`
}
