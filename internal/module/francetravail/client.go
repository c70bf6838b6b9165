package francetravail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// authenticate requests an access token with the client_credentials grant
func (c *Collector) authenticate(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)
	form.Set("scope", c.config.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do auth request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read auth response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("parse auth response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("auth response carries no access token")
	}

	log.Printf("[FranceTravail] Authenticated, token expires in %ds", tok.ExpiresIn)
	return tok.AccessToken, nil
}

// searchPage fetches one page of offers. Pages start at 1 and map onto the
// API's range parameter. Returns the raw response payload and the number of
// offers it holds.
func (c *Collector) searchPage(ctx context.Context, token string, page int) ([]byte, int, error) {
	start := (page - 1) * c.config.PageSize
	end := start + c.config.PageSize - 1

	params := url.Values{}
	params.Set("range", fmt.Sprintf("%d-%d", start, end))
	if c.config.Keywords != "" {
		params.Set("motsCles", c.config.Keywords)
	}
	if c.config.Commune != "" {
		params.Set("commune", c.config.Commune)
	}
	if c.config.Distance > 0 {
		params.Set("distance", strconv.Itoa(c.config.Distance))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.APIURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read search response: %w", err)
	}

	// 206 Partial Content is the normal answer to a ranged search
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, 0, fmt.Errorf("search status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	if cr := resp.Header.Get("Content-Range"); cr != "" {
		log.Printf("[FranceTravail] Content-Range: %s", cr)
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, 0, fmt.Errorf("parse search response: %w", err)
	}

	return body, len(sr.Resultats), nil
}

func truncate(b []byte, max int) string {
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
