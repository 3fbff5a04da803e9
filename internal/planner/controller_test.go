package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/agent-builder/travel-planner/internal/config"
	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
)

func newTestController(gen *scriptedGenerator, tool *fakeSearch) *Controller {
	cfg := &config.Config{
		Planner: config.PlannerConfig{MaxRevisions: DefaultMaxRevisions, ResearchConcurrency: 2},
	}
	return New(gen, tool, cfg)
}

func collect(t *testing.T, c *Controller, req models.TripRequest) ([]Event, error) {
	t.Helper()
	var events []Event
	for event, err := range c.Run(context.Background(), req) {
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
	return events, nil
}

func stagesOf(events []Event) []models.Stage {
	out := make([]models.Stage, len(events))
	for i, e := range events {
		out[i] = e.Stage
	}
	return out
}

func TestController_AcceptedOnFirstPass(t *testing.T) {
	gen := &scriptedGenerator{
		planning:   []string{`["flights NYC Paris", "hotels Paris", "Louvre tickets"]`},
		drafting:   []string{"Day 1: Louvre ($20)"},
		validation: []string{"VALID"},
	}
	tool := &fakeSearch{}

	events, err := collect(t, newTestController(gen, tool), parisRequest)
	require.NoError(t, err)

	assert.Equal(t, []models.Stage{
		models.StagePlanning, models.StageResearching, models.StageDrafting, models.StageValidating,
	}, stagesOf(events))

	last := events[len(events)-1]
	assert.Equal(t, models.StopAccepted, last.Stop)
	assert.IsType(t, Accepted{}, last.Outcome)
	require.NotNil(t, last.State.FinalItinerary)
	assert.Equal(t, "Day 1: Louvre ($20)", *last.State.FinalItinerary)
	assert.Nil(t, last.State.Critique)
	assert.Equal(t, 1, last.State.RevisionNumber)

	for _, e := range events[:3] {
		assert.Empty(t, e.Stop)
		assert.Nil(t, e.State.FinalItinerary)
	}
	assert.ElementsMatch(t, []string{"flights NYC Paris", "hotels Paris", "Louvre tickets"}, tool.queries)
}

func TestController_InfeasibleStopsWithBudgetWarning(t *testing.T) {
	gen := &scriptedGenerator{
		planning:   []string{"not json at all"},
		drafting:   []string{"Day 1: Ritz"},
		validation: []string{"INFEASIBLE: $900 - too tight"},
	}

	result, err := newTestController(gen, &fakeSearch{}).Execute(context.Background(), parisRequest)
	require.NoError(t, err)
	require.NoError(t, result.Err())

	assert.Equal(t, models.StopInfeasible, result.Stop)
	require.NotNil(t, result.State.Critique)
	assert.Contains(t, *result.State.Critique, "$900")
	require.NotNil(t, result.State.FinalItinerary)
	assert.Contains(t, *result.State.FinalItinerary, "Budget")
	assert.Equal(t, FallbackQueries(parisRequest), result.State.Plan)
}

func TestController_CritiqueFeedsNextRevision(t *testing.T) {
	gen := &scriptedGenerator{
		planning:   []string{`["q1", "a", "b"]`, `["q2", "c", "d"]`},
		drafting:   []string{"draft one", "draft two"},
		validation: []string{"Estimated $1400 - swap the hotel for a hostel.", "VALID"},
	}

	events, err := collect(t, newTestController(gen, &fakeSearch{}), parisRequest)
	require.NoError(t, err)
	require.Len(t, events, 8)

	continuing := events[3]
	assert.Empty(t, continuing.Stop)
	assert.Equal(t, Continuing{Critique: "Estimated $1400 - swap the hotel for a hostel."}, continuing.Outcome)
	assert.Nil(t, continuing.State.FinalItinerary)

	assert.Equal(t, 2, events[4].Revision)
	drafts := gen.promptsContaining("You are a travel agent.")
	require.Len(t, drafts, 2)
	assert.Contains(t, drafts[0], "previous validation:\nNone")
	assert.Contains(t, drafts[1], "Estimated $1400 - swap the hotel for a hostel.")

	last := events[7]
	assert.Equal(t, models.StopAccepted, last.Stop)
	assert.Equal(t, "draft two", *last.State.FinalItinerary)
	assert.Nil(t, last.State.Critique)
	assert.Equal(t, []string{"q2", "c", "d"}, last.State.Plan)
}

func TestController_ExhaustsAfterFourIndeterminateVerdicts(t *testing.T) {
	gen := &scriptedGenerator{
		planning:   []string{`["q"]`},
		drafting:   []string{"draft"},
		validation: []string{"Looks mostly fine but recheck hotel cost"},
	}

	events, err := collect(t, newTestController(gen, &fakeSearch{}), parisRequest)
	require.NoError(t, err)
	require.Len(t, events, 16)

	planningRuns := 0
	for _, e := range events {
		if e.Stage == models.StagePlanning {
			planningRuns++
		}
	}
	assert.Equal(t, 4, planningRuns)

	last := events[15]
	assert.Equal(t, models.StopExhausted, last.Stop)
	assert.Nil(t, last.State.FinalItinerary)
	assert.Equal(t, 4, last.State.RevisionNumber)

	result, err := newTestController(&scriptedGenerator{
		planning:   []string{`["q"]`},
		validation: []string{"INVALID"},
	}, &fakeSearch{}).Execute(context.Background(), parisRequest)
	require.NoError(t, err)
	assert.ErrorIs(t, result.Err(), ErrRevisionBudgetExhausted)
	assert.Nil(t, result.State.FinalItinerary)
}

func TestController_RevisionNumberIsMonotonic(t *testing.T) {
	gen := &scriptedGenerator{
		planning:   []string{`["q"]`},
		validation: []string{"meh"},
	}

	events, err := collect(t, newTestController(gen, &fakeSearch{}), parisRequest)
	require.NoError(t, err)

	previous := 0
	for _, e := range events {
		assert.GreaterOrEqual(t, e.Revision, previous)
		assert.Equal(t, e.Revision, e.State.RevisionNumber)
		previous = e.Revision
	}
}

func TestController_GeneratorFailureEndsTheRun(t *testing.T) {
	tests := []struct {
		name        string
		failOn      string
		failedStage models.Stage
		seen        int
	}{
		{name: "planning", failOn: "planning", failedStage: models.StagePlanning, seen: 0},
		{name: "drafting", failOn: "drafting", failedStage: models.StageDrafting, seen: 2},
		{name: "validation", failOn: "validation", failedStage: models.StageValidating, seen: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &scriptedGenerator{planning: []string{`["q"]`}, failOn: tt.failOn}
			c := newTestController(gen, &fakeSearch{})

			var seen int
			var failedAt models.Stage
			var runErr error
			for event, err := range c.Run(context.Background(), parisRequest) {
				if err != nil {
					failedAt, runErr = event.Stage, err
					break
				}
				seen++
			}

			require.Error(t, runErr)
			assert.Contains(t, runErr.Error(), "upstream 502")
			assert.Equal(t, tt.failedStage, failedAt)
			assert.Equal(t, tt.seen, seen)

			_, err := c.Execute(context.Background(), parisRequest)
			assert.Error(t, err)
		})
	}
}

func TestController_BreakingOutAbandonsTheRun(t *testing.T) {
	gen := &scriptedGenerator{
		planning:   []string{`["q"]`},
		validation: []string{"VALID"},
	}
	tool := &fakeSearch{}

	for event, err := range newTestController(gen, tool).Run(context.Background(), parisRequest) {
		require.NoError(t, err)
		if event.Stage == models.StagePlanning {
			break
		}
	}

	assert.Empty(t, tool.queries)
	assert.Len(t, gen.prompts, 1)
}

func TestController_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &scriptedGenerator{planning: []string{`["q"]`}}
	_, err := newTestController(gen, &fakeSearch{}).Execute(ctx, parisRequest)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, gen.prompts)
}

func TestEvent_StateIsASnapshot(t *testing.T) {
	gen := &scriptedGenerator{
		planning:   []string{`["q1", "a", "b"]`, `["q2", "c", "d"]`},
		validation: []string{"retry", "VALID"},
	}

	events, err := collect(t, newTestController(gen, &fakeSearch{}), parisRequest)
	require.NoError(t, err)

	assert.Equal(t, []string{"q1", "a", "b"}, events[0].State.Plan)
	assert.Equal(t, []string{"q2", "c", "d"}, events[len(events)-1].State.Plan)
}
