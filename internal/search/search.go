// Package search provides the web search tool used by the research stage
// and the follow-up chat.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingAPIKey is returned by providers that need credentials when none were configured.
var ErrMissingAPIKey = errors.New("search: API key is missing")

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Tool runs a web search for a free-text query.
type Tool interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Format renders results as the text blob handed to the language model.
func Format(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n", i+1, r.Title, r.URL, strings.TrimSpace(r.Content))
	}
	return b.String()
}
