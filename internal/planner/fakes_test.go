package planner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bizmatters/agent-builder/travel-planner/internal/llm"
	"github.com/bizmatters/agent-builder/travel-planner/internal/search"
)

// scriptedGenerator answers each stage from its own queue of replies.
// The last reply of a queue repeats once the queue is drained.
type scriptedGenerator struct {
	mu          sync.Mutex
	planning    []string
	drafting    []string
	validation  []string
	failOn      string
	prompts     []string
	temperature []float32
}

func (g *scriptedGenerator) Generate(ctx context.Context, req llm.Request) (llm.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	prompt := req.Messages[len(req.Messages)-1].Content
	g.prompts = append(g.prompts, prompt)
	g.temperature = append(g.temperature, req.Temperature)

	var stage string
	var queue *[]string
	switch {
	case req.Messages[0].Content == planningInstruction:
		stage, queue = "planning", &g.planning
	case strings.Contains(prompt, "You are a travel agent."):
		stage, queue = "drafting", &g.drafting
	case strings.Contains(prompt, "Review this itinerary"):
		stage, queue = "validation", &g.validation
	default:
		return llm.TextOnly{Content: prompt}, nil
	}

	if g.failOn == stage {
		return nil, errors.New("upstream 502 bad gateway")
	}
	if len(*queue) == 0 {
		return llm.TextOnly{}, nil
	}
	reply := (*queue)[0]
	if len(*queue) > 1 {
		*queue = (*queue)[1:]
	}
	return llm.TextOnly{Content: reply}, nil
}

func (g *scriptedGenerator) promptsContaining(substr string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, p := range g.prompts {
		if strings.Contains(p, substr) {
			out = append(out, p)
		}
	}
	return out
}

// fakeSearch returns canned results, optionally failing or delaying specific queries.
type fakeSearch struct {
	mu      sync.Mutex
	fail    map[string]error
	delay   map[string]time.Duration
	queries []string
}

func (f *fakeSearch) Search(ctx context.Context, query string) ([]search.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if d, ok := f.delay[query]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.fail[query]; ok {
		return nil, err
	}
	return []search.Result{{Title: "About " + query, URL: "https://example.com", Content: "info on " + query}}, nil
}

// fixedGenerator always answers with the same text.
type fixedGenerator struct {
	reply      string
	lastPrompt string
}

func (g *fixedGenerator) Generate(ctx context.Context, req llm.Request) (llm.Result, error) {
	g.lastPrompt = req.Messages[len(req.Messages)-1].Content
	return llm.TextOnly{Content: g.reply}, nil
}
