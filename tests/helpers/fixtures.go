package helpers

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/bizmatters/agent-builder/travel-planner/internal/llm"
	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
	"github.com/bizmatters/agent-builder/travel-planner/internal/search"
)

// TestUser represents a test user fixture
type TestUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Default test fixtures
var (
	DefaultTestUser = TestUser{
		Email:    "test@example.com",
		Password: "test-password-123",
	}

	DefaultTrip = models.TripRequest{
		Origin:      "London",
		Destination: "Paris",
		Dates:       "Oct 1-5",
		Budget:      "1500 EUR",
		Interests:   []string{"Food", "History"},
	}

	DefaultItinerary = "### Paris in 5 days\n\nDay 1: Louvre and a bistro dinner."
)

// StageGenerator stands in for a language model. It recognises each planner
// stage by its prompt and replies with a fixed answer; validation verdicts are
// taken from Verdicts in order, the last one repeating.
type StageGenerator struct {
	mu        sync.Mutex
	Queries   []string
	Itinerary string
	Verdicts  []string
	ChatReply string
	calls     int
}

// NewStageGenerator returns a generator that accepts DefaultItinerary on the first pass.
func NewStageGenerator() *StageGenerator {
	return &StageGenerator{
		Queries:   []string{"flights London to Paris October", "hotels in Le Marais", "museums in Paris"},
		Itinerary: DefaultItinerary,
		Verdicts:  []string{"VALID"},
		ChatReply: "Expect 15°C and light rain, pack an umbrella.",
	}
}

// Generate implements llm.Generator.
func (g *StageGenerator) Generate(ctx context.Context, req llm.Request) (llm.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++

	prompt := req.Messages[len(req.Messages)-1].Content
	switch {
	case len(req.Tools) > 0:
		return llm.TextOnly{Content: g.ChatReply}, nil
	case strings.Contains(prompt, "You are a travel agent."):
		return llm.TextOnly{Content: g.Itinerary}, nil
	case strings.Contains(prompt, "Review this itinerary"):
		verdict := g.Verdicts[0]
		if len(g.Verdicts) > 1 {
			g.Verdicts = g.Verdicts[1:]
		}
		return llm.TextOnly{Content: verdict}, nil
	default:
		queries, _ := json.Marshal(g.Queries)
		return llm.TextOnly{Content: string(queries)}, nil
	}
}

// Calls returns how many generations were requested.
func (g *StageGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// StaticSearch answers every query with one result naming the query.
type StaticSearch struct{}

// Search implements search.Tool.
func (StaticSearch) Search(ctx context.Context, query string) ([]search.Result, error) {
	return []search.Result{{
		Title:   "Result for " + query,
		URL:     "https://example.com/" + strings.ReplaceAll(query, " ", "-"),
		Content: "Prices from 80 EUR.",
	}}, nil
}
