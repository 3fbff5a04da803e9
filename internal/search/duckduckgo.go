package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const duckDuckGoLiteURL = "https://lite.duckduckgo.com/lite/"

// DuckDuckGo scrapes the DuckDuckGo lite HTML page. It needs no credentials.
type DuckDuckGo struct {
	MaxResults int
	endpoint   string
	client     *http.Client
}

// NewDuckDuckGo constructs a DuckDuckGo search provider.
func NewDuckDuckGo(maxResults int, timeout time.Duration) *DuckDuckGo {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &DuckDuckGo{
		MaxResults: maxResults,
		endpoint:   duckDuckGoLiteURL,
		client:     &http.Client{Timeout: timeout},
	}
}

// SetEndpoint overrides the page URL for testing purposes
func (d *DuckDuckGo) SetEndpoint(endpoint string) {
	d.endpoint = endpoint
}

// Search fetches the lite results page and extracts links with their snippets.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Result, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; travel-planner/1.0)")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %w", err)
	}

	var snippets []string
	doc.Find("td.result-snippet").Each(func(_ int, s *goquery.Selection) {
		snippets = append(snippets, strings.Join(strings.Fields(s.Text()), " "))
	})

	var results []Result
	doc.Find("a.result-link").EachWithBreak(func(i int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		r := Result{Title: strings.TrimSpace(s.Text()), URL: resolveRedirect(href)}
		if i < len(snippets) {
			r.Content = snippets[i]
		}
		results = append(results, r)
		return len(results) < d.MaxResults
	})

	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}
