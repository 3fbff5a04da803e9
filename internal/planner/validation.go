package planner

import (
	"context"
	"fmt"
	"regexp"

	"github.com/bizmatters/agent-builder/travel-planner/internal/llm"
	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
)

// Markers are matched as whole upper-case words, so "INVALID" is not an acceptance.
var (
	rejectionMarker  = regexp.MustCompile(`\bINFEASIBLE\b`)
	acceptanceMarker = regexp.MustCompile(`\bVALID\b`)
)

// Outcome is the verdict of a validation pass: Accepted, Infeasible or Continuing.
type Outcome interface {
	Kind() string
	// Delta is the state change the verdict produces.
	Delta() models.StateDelta
	isOutcome()
}

// Accepted means the draft fits the budget and becomes the final itinerary.
type Accepted struct {
	Itinerary string
}

// Infeasible means the budget cannot cover the trip. The run ends with Message
// shown instead of an itinerary.
type Infeasible struct {
	Critique string
	Message  string
}

// Continuing means the verdict carried no marker; Critique feeds the next revision.
type Continuing struct {
	Critique string
}

func (Accepted) Kind() string   { return "accepted" }
func (Infeasible) Kind() string { return "infeasible" }
func (Continuing) Kind() string { return "continuing" }

func (Accepted) isOutcome()   {}
func (Infeasible) isOutcome() {}
func (Continuing) isOutcome() {}

func (o Accepted) Delta() models.StateDelta {
	itinerary := o.Itinerary
	return models.StateDelta{ClearCritique: true, FinalItinerary: &itinerary}
}

func (o Infeasible) Delta() models.StateDelta {
	critique, message := o.Critique, o.Message
	return models.StateDelta{Critique: &critique, FinalItinerary: &message}
}

func (o Continuing) Delta() models.StateDelta {
	critique := o.Critique
	return models.StateDelta{Critique: &critique}
}

// Classify maps the validator's free text onto an Outcome. The rejection
// marker wins when both markers appear.
func Classify(verdict, draft string) Outcome {
	switch {
	case rejectionMarker.MatchString(verdict):
		return Infeasible{Critique: verdict, Message: budgetWarning(verdict)}
	case acceptanceMarker.MatchString(verdict):
		return Accepted{Itinerary: draft}
	default:
		return Continuing{Critique: verdict}
	}
}

// ValidationStage asks the generator to cost the draft against the budget.
type ValidationStage struct {
	gen         llm.Generator
	temperature float32
}

// NewValidationStage creates the validation stage.
func NewValidationStage(gen llm.Generator, temperature float32) *ValidationStage {
	return &ValidationStage{gen: gen, temperature: temperature}
}

// Validate implements Validator.
func (s *ValidationStage) Validate(ctx context.Context, state *models.PlanningState) (Outcome, error) {
	verdict, err := llm.Complete(ctx, s.gen, s.temperature, validationPrompt(state))
	if err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	return Classify(verdict, state.Draft), nil
}
