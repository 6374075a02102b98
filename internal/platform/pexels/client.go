package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Fixed fallback URLs. The client never fails from the caller's perspective;
// every failure mode degrades to one of these sentinels.
const (
	PlaceholderNoAPIKey = "https://placehold.co/600x400?text=No+API+Key"
	PlaceholderNoImage  = "https://placehold.co/600x400?text=No+Image+Found"
	PlaceholderError    = "https://placehold.co/600x400?text=Error"
)

const defaultAPIURL = "https://api.pexels.com/v1/search"

// Result is the outcome of an image search. Found is false when URL is a
// placeholder sentinel; Reason then says why.
type Result struct {
	URL    string
	Found  bool
	Reason string
}

// Client searches Pexels for stock photos.
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
}

// NewClient creates a Pexels client. An empty apiKey is allowed; searches
// then return the no-API-key placeholder.
func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     defaultAPIURL,
		apiKey:     apiKey,
	}
}

type searchResponse struct {
	Photos []struct {
		Src struct {
			Medium string `json:"medium"`
		} `json:"src"`
	} `json:"photos"`
}

// FindImage returns the top landscape photo for query. It never returns an
// error: missing credential, transport failures, bad status codes, parse
// failures and empty result sets all degrade to placeholder URLs.
func (c *Client) FindImage(ctx context.Context, query string) Result {
	if c.apiKey == "" {
		return Result{URL: PlaceholderNoAPIKey, Reason: "no API key configured"}
	}

	u, err := url.Parse(c.apiURL)
	if err != nil {
		return c.fallback(query, fmt.Errorf("bad API URL: %w", err))
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("per_page", "1")
	q.Set("orientation", "landscape")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return c.fallback(query, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fallback(query, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.fallback(query, fmt.Errorf("received status %d", resp.StatusCode))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return c.fallback(query, fmt.Errorf("failed to decode response: %w", err))
	}

	if len(sr.Photos) == 0 {
		return Result{URL: PlaceholderNoImage, Reason: "no photos matched"}
	}
	return Result{URL: sr.Photos[0].Src.Medium, Found: true}
}

func (c *Client) fallback(query string, err error) Result {
	slog.Warn("image search failed", "query", query, "error", err)
	return Result{URL: PlaceholderError, Reason: err.Error()}
}
