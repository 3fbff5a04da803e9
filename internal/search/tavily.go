package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	tavilyEndpoint = "https://api.tavily.com/search"
	// tavilyMaxAttempts bounds how often a rate-limited query is sent.
	tavilyMaxAttempts = 3
)

// Tavily calls the Tavily search API.
type Tavily struct {
	APIKey string
	// Depth controls Tavily's search_depth parameter (basic or advanced).
	Depth      string
	MaxResults int
	endpoint   string
	backoff    time.Duration
	client     *http.Client
}

// NewTavily constructs a Tavily search provider.
func NewTavily(apiKey, depth string, maxResults int, timeout time.Duration) *Tavily {
	if depth == "" {
		depth = "basic"
	}
	if maxResults <= 0 {
		maxResults = 3
	}
	return &Tavily{
		APIKey:     apiKey,
		Depth:      depth,
		MaxResults: maxResults,
		endpoint:   tavilyEndpoint,
		backoff:    time.Second,
		client:     &http.Client{Timeout: timeout},
	}
}

// SetEndpoint overrides the API URL for testing purposes
func (t *Tavily) SetEndpoint(endpoint string) {
	t.endpoint = endpoint
}

// Search posts a query to Tavily.
func (t *Tavily) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(t.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	payload, err := json.Marshal(map[string]any{
		"query":        query,
		"api_key":      t.APIKey,
		"search_depth": t.Depth,
		"max_results":  t.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp *http.Response
	delay := t.backoff
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = t.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("tavily request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt == tavilyMaxAttempts {
			break
		}
		resp.Body.Close()

		// Back off and retry on 429, doubling the delay each time.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tavily returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response struct {
		Results []Result `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(response.Results) > t.MaxResults {
		response.Results = response.Results[:t.MaxResults]
	}
	return response.Results, nil
}
