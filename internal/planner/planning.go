package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/bizmatters/agent-builder/travel-planner/internal/llm"
	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
)

const (
	minQueries = 3
	maxQueries = 5
)

// PlanningStage asks the generator for search queries and bumps the revision counter.
type PlanningStage struct {
	gen         llm.Generator
	temperature float32
}

// NewPlanningStage creates the planning stage.
func NewPlanningStage(gen llm.Generator, temperature float32) *PlanningStage {
	return &PlanningStage{gen: gen, temperature: temperature}
}

// Run implements Stage. Unusable generator output falls back to FallbackQueries
// and a plan shorter than three queries is topped up from them; only generator
// transport errors are returned.
func (s *PlanningStage) Run(ctx context.Context, state *models.PlanningState) (models.StateDelta, error) {
	result, err := s.gen.Generate(ctx, llm.Request{
		Messages: []llm.Message{
			llm.SystemMessage(planningInstruction),
			llm.UserMessage(planningRequest(state)),
		},
		Temperature: s.temperature,
	})
	if err != nil {
		return models.StateDelta{}, fmt.Errorf("planning: %w", err)
	}

	queries, ok := parseStringList(result.Text())
	if !ok {
		queries = FallbackQueries(state.Request)
	}
	for _, q := range FallbackQueries(state.Request) {
		if len(queries) >= minQueries {
			break
		}
		if !slices.Contains(queries, q) {
			queries = append(queries, q)
		}
	}
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}

	revision := state.RevisionNumber + 1
	return models.StateDelta{Plan: queries, RevisionNumber: &revision}, nil
}

// FallbackQueries is the fixed plan used when the generator's answer cannot be parsed.
func FallbackQueries(req models.TripRequest) []string {
	return []string{
		fmt.Sprintf("flights from %s to %s %s", req.Origin, req.Destination, req.Dates),
		fmt.Sprintf("cheap hotels in %s", req.Destination),
		fmt.Sprintf("top things to do in %s", req.Destination),
	}
}

// parseStringList decodes a JSON array of strings, tolerating a Markdown code
// fence or prose around the array. Blank entries are dropped; an empty result
// counts as a failure.
func parseStringList(content string) ([]string, bool) {
	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var items []string
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		start, end := strings.Index(text, "["), strings.LastIndex(text, "]")
		if start < 0 || end <= start {
			return nil, false
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &items); err != nil {
			return nil, false
		}
	}

	items = lo.Compact(lo.Map(items, func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
	if len(items) == 0 {
		return nil, false
	}
	return items, true
}
