package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/bizmatters/agent-builder/travel-planner/internal/llm"
)

const maxSuggestions = 5

// SuggestDestinations asks the generator for up to five "City, Country"
// destinations matching a free-text theme.
func SuggestDestinations(ctx context.Context, gen llm.Generator, temperature float32, theme string) ([]string, error) {
	text, err := llm.Complete(ctx, gen, temperature, suggestionPrompt(theme))
	if err != nil {
		return nil, fmt.Errorf("suggest destinations: %w", err)
	}

	destinations, ok := parseStringList(text)
	if !ok {
		destinations = lo.Compact(lo.Map(strings.Split(text, "\n"), func(line string, _ int) string {
			return strings.TrimSpace(strings.TrimLeft(line, "-*•0123456789. \t"))
		}))
	}
	destinations = lo.Uniq(destinations)
	if len(destinations) > maxSuggestions {
		destinations = destinations[:maxSuggestions]
	}
	return destinations, nil
}

// Suggester binds SuggestDestinations to a generator.
type Suggester struct {
	gen         llm.Generator
	temperature float32
}

// NewSuggester creates a Suggester.
func NewSuggester(gen llm.Generator, temperature float32) *Suggester {
	return &Suggester{gen: gen, temperature: temperature}
}

// SuggestDestinations implements the destination lookup for a theme.
func (s *Suggester) SuggestDestinations(ctx context.Context, theme string) ([]string, error) {
	return SuggestDestinations(ctx, s.gen, s.temperature, theme)
}
