package planner

import (
	"context"
	"fmt"

	"github.com/bizmatters/agent-builder/travel-planner/internal/llm"
	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
)

// DraftingStage turns research and the last critique into an itinerary.
type DraftingStage struct {
	gen         llm.Generator
	temperature float32
}

// NewDraftingStage creates the drafting stage.
func NewDraftingStage(gen llm.Generator, temperature float32) *DraftingStage {
	return &DraftingStage{gen: gen, temperature: temperature}
}

// Run implements Stage.
func (s *DraftingStage) Run(ctx context.Context, state *models.PlanningState) (models.StateDelta, error) {
	draft, err := llm.Complete(ctx, s.gen, s.temperature, draftingPrompt(state))
	if err != nil {
		return models.StateDelta{}, fmt.Errorf("drafting: %w", err)
	}
	return models.StateDelta{Draft: &draft}, nil
}
