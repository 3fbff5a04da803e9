// Package planner runs the plan, research, draft and validate revision loop
// that turns a trip request into an itinerary.
package planner

import (
	"context"
	"errors"
	"iter"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/agent-builder/travel-planner/internal/config"
	"github.com/bizmatters/agent-builder/travel-planner/internal/llm"
	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
	"github.com/bizmatters/agent-builder/travel-planner/internal/search"
)

// ErrRevisionBudgetExhausted reports a run that stopped without a verdict.
var ErrRevisionBudgetExhausted = errors.New("planner: revision budget exhausted without an itinerary")

// DefaultMaxRevisions is the number of revisions allowed before the run gives up.
const DefaultMaxRevisions = 3

// Stage is one step of the loop that produces a state delta.
type Stage interface {
	Run(ctx context.Context, state *models.PlanningState) (models.StateDelta, error)
}

// Validator judges a draft.
type Validator interface {
	Validate(ctx context.Context, state *models.PlanningState) (Outcome, error)
}

// Stages bundles the loop's collaborators.
type Stages struct {
	Planning   Stage
	Research   Stage
	Drafting   Stage
	Validation Validator
}

// Event reports the completion of one stage.
type Event struct {
	Stage    models.Stage
	Revision int
	Delta    models.StateDelta
	// Outcome is set on validation events only.
	Outcome Outcome
	// Stop is set on the last event of a run.
	Stop     models.StopKind
	State    *models.PlanningState
	Duration time.Duration
}

// Result is the final state of a drained run.
type Result struct {
	State *models.PlanningState
	Stop  models.StopKind
}

// Err returns ErrRevisionBudgetExhausted when the run produced no itinerary.
func (r *Result) Err() error {
	if r.Stop == models.StopExhausted {
		return ErrRevisionBudgetExhausted
	}
	return nil
}

type phase int

const (
	phasePlanning phase = iota
	phaseResearching
	phaseDrafting
	phaseValidating
	phaseStopped
)

var phaseStages = map[phase]models.Stage{
	phasePlanning:    models.StagePlanning,
	phaseResearching: models.StageResearching,
	phaseDrafting:    models.StageDrafting,
	phaseValidating:  models.StageValidating,
}

// Controller drives a TripRequest through the revision loop.
type Controller struct {
	stages       Stages
	maxRevisions int
	tracer       trace.Tracer
}

// NewController wires the loop from explicit stages.
func NewController(stages Stages, maxRevisions int) *Controller {
	return &Controller{
		stages:       stages,
		maxRevisions: maxRevisions,
		tracer:       otel.Tracer("travel-planner"),
	}
}

// New builds the standard stages around a generator and a search tool.
func New(gen llm.Generator, tool search.Tool, cfg *config.Config) *Controller {
	temperature := cfg.LLM.Temperature
	return NewController(Stages{
		Planning:   NewPlanningStage(gen, temperature),
		Research:   NewResearchStage(tool, cfg.Planner.ResearchConcurrency),
		Drafting:   NewDraftingStage(gen, temperature),
		Validation: NewValidationStage(gen, temperature),
	}, cfg.Planner.MaxRevisions)
}

// Run returns the lazy sequence of stage events for req. The sequence ends
// after the event carrying a Stop kind, or with a non-nil error when a
// collaborator fails or ctx is cancelled. Breaking out of the loop abandons the run.
func (c *Controller) Run(ctx context.Context, req models.TripRequest) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		state := models.NewPlanningState(req)
		current := phasePlanning

		for current != phaseStopped {
			if err := ctx.Err(); err != nil {
				yield(Event{Stage: phaseStages[current], Revision: state.RevisionNumber}, err)
				return
			}

			started := time.Now()
			delta, outcome, err := c.runStage(ctx, current, state)
			if err != nil {
				yield(Event{Stage: phaseStages[current], Revision: state.RevisionNumber}, err)
				return
			}
			delta.Apply(state)

			next, stop := c.transition(current, outcome, state)
			event := Event{
				Stage:    phaseStages[current],
				Revision: state.RevisionNumber,
				Delta:    delta,
				Outcome:  outcome,
				Stop:     stop,
				State:    state.Clone(),
				Duration: time.Since(started),
			}
			if !yield(event, nil) {
				return
			}
			current = next
		}
	}
}

// Execute drains Run and returns the final state.
func (c *Controller) Execute(ctx context.Context, req models.TripRequest) (*Result, error) {
	var last Event
	for event, err := range c.Run(ctx, req) {
		if err != nil {
			return nil, err
		}
		last = event
	}
	return &Result{State: last.State, Stop: last.Stop}, nil
}

func (c *Controller) runStage(ctx context.Context, p phase, state *models.PlanningState) (models.StateDelta, Outcome, error) {
	ctx, span := c.tracer.Start(ctx, "planner."+string(phaseStages[p]))
	defer span.End()
	span.SetAttributes(attribute.Int("planner.revision", state.RevisionNumber))

	var (
		delta   models.StateDelta
		outcome Outcome
		err     error
	)
	switch p {
	case phasePlanning:
		delta, err = c.stages.Planning.Run(ctx, state)
	case phaseResearching:
		delta, err = c.stages.Research.Run(ctx, state)
	case phaseDrafting:
		delta, err = c.stages.Drafting.Run(ctx, state)
	case phaseValidating:
		outcome, err = c.stages.Validation.Validate(ctx, state)
		if err == nil {
			delta = outcome.Delta()
			span.SetAttributes(attribute.String("planner.outcome", outcome.Kind()))
		}
	}
	if err != nil {
		span.RecordError(err)
	}
	return delta, outcome, err
}

// transition is the only place the loop's edges are defined.
func (c *Controller) transition(p phase, outcome Outcome, state *models.PlanningState) (phase, models.StopKind) {
	switch p {
	case phasePlanning:
		return phaseResearching, ""
	case phaseResearching:
		return phaseDrafting, ""
	case phaseDrafting:
		return phaseValidating, ""
	}

	switch outcome.(type) {
	case Accepted:
		return phaseStopped, models.StopAccepted
	case Infeasible:
		return phaseStopped, models.StopInfeasible
	}
	if state.RevisionNumber > c.maxRevisions {
		return phaseStopped, models.StopExhausted
	}
	return phasePlanning, ""
}
