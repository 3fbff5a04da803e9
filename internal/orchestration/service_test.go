package orchestration

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/agent-builder/travel-planner/internal/metrics"
	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
	"github.com/bizmatters/agent-builder/travel-planner/internal/planner"
)

var tripRequest = models.TripRequest{
	Origin:      "NYC",
	Destination: "Paris",
	Dates:       "Oct 1-5",
	Budget:      "500 USD",
	Interests:   []string{"Food"},
}

// MockPlanner replays scripted events, optionally waiting on gate first.
type MockPlanner struct {
	events []planner.Event
	err    error
	gate   chan struct{}
}

func (p *MockPlanner) Run(ctx context.Context, req models.TripRequest) iter.Seq2[planner.Event, error] {
	return func(yield func(planner.Event, error) bool) {
		if p.gate != nil {
			select {
			case <-p.gate:
			case <-ctx.Done():
				yield(planner.Event{Stage: models.StagePlanning}, ctx.Err())
				return
			}
		}
		for _, e := range p.events {
			if !yield(e, nil) {
				return
			}
		}
		if p.err != nil {
			yield(planner.Event{Stage: models.StageDrafting, Revision: 1}, p.err)
		}
	}
}

// MockAssistant echoes the last question and records its inputs.
type MockAssistant struct {
	mu          sync.Mutex
	err         error
	histories   [][]models.ChatTurn
	itineraries []string
}

func (a *MockAssistant) Reply(ctx context.Context, history []models.ChatTurn, itinerary string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.histories = append(a.histories, history)
	a.itineraries = append(a.itineraries, itinerary)
	if a.err != nil {
		return "", a.err
	}
	return "answer to: " + history[len(history)-1].Content, nil
}

type MockSuggester struct{}

func (MockSuggester) SuggestDestinations(ctx context.Context, theme string) ([]string, error) {
	return []string{"Bali, Indonesia"}, nil
}

func strPtr(s string) *string { return &s }

func runEvents(stop models.StopKind, final, critique *string) []planner.Event {
	state := models.NewPlanningState(tripRequest)
	state.RevisionNumber = 1
	state.Plan = []string{"q1", "q2"}

	research := models.StateDelta{SearchResults: []string{
		planner.ResultBlob("q1", "r"),
		planner.ErrorBlob("q2", errors.New("quota")),
	}}
	final2 := state.Clone()
	final2.FinalItinerary = final
	final2.Critique = critique

	var outcome planner.Outcome
	switch stop {
	case models.StopAccepted:
		outcome = planner.Accepted{Itinerary: *final}
	case models.StopInfeasible:
		outcome = planner.Infeasible{Critique: *critique, Message: *final}
	default:
		outcome = planner.Continuing{Critique: *critique}
	}

	return []planner.Event{
		{Stage: models.StagePlanning, Revision: 1, State: state.Clone()},
		{Stage: models.StageResearching, Revision: 1, Delta: research, State: state.Clone()},
		{Stage: models.StageDrafting, Revision: 1, State: state.Clone()},
		{Stage: models.StageValidating, Revision: 1, Outcome: outcome, Stop: stop, State: final2},
	}
}

func newTestService(t *testing.T, p Planner, a Assistant) (*Service, *MemoryStore) {
	t.Helper()
	m, err := metrics.NewPlanMetrics()
	require.NoError(t, err)

	store := NewMemoryStore()
	svc := NewService(Options{
		Planner:    p,
		Assistant:  a,
		Suggester:  MockSuggester{},
		Store:      store,
		Metrics:    m,
		Provider:   "openai",
		SessionTTL: time.Hour,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return svc, store
}

func drain(t *testing.T, svc *Service, userID, runID uuid.UUID) []models.StageEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := svc.Subscribe(ctx, userID, runID)
	require.NoError(t, err)

	var events []models.StageEvent
	for event := range ch {
		events = append(events, event)
	}
	require.NoError(t, ctx.Err(), "stream did not finish")
	return events
}

func TestService_AcceptedRun(t *testing.T) {
	itinerary := "Day 1: Louvre"
	svc, _ := newTestService(t, &MockPlanner{events: runEvents(models.StopAccepted, &itinerary, nil)}, &MockAssistant{})
	userID := uuid.New()

	run, err := svc.StartPlan(context.Background(), userID, "", tripRequest)
	require.NoError(t, err)
	assert.NotEmpty(t, run.SessionID)
	assert.Equal(t, models.RunStatusPending, run.Status)

	events := drain(t, svc, userID, run.ID)
	require.Len(t, events, 5)
	for i, e := range events {
		assert.Equal(t, i+1, e.Sequence)
		assert.Equal(t, run.ID.String(), e.RunID)
	}
	assert.Equal(t, models.StagePlanning, events[0].Stage)
	assert.Equal(t, "accepted", events[3].Outcome)
	assert.Equal(t, models.EventTypeRunEnded, events[4].EventType)
	assert.Equal(t, models.StopAccepted, events[4].Stop)

	stored, err := svc.GetRun(context.Background(), userID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusAccepted, stored.Status)
	require.NotNil(t, stored.FinalItinerary)
	assert.Equal(t, itinerary, *stored.FinalItinerary)
	assert.Equal(t, 1, stored.RevisionNumber)
	assert.NotNil(t, stored.CompletedAt)

	replay := drain(t, svc, userID, run.ID)
	assert.Equal(t, events, replay)
}

func TestService_TerminalStatuses(t *testing.T) {
	warning := "### ⚠️ Budget Issue\n\nINFEASIBLE: $900 - too tight\n\n**Please increase your budget and try again.**"
	critique := "INFEASIBLE: $900 - too tight"
	pending := "recheck hotel cost"

	tests := []struct {
		name     string
		planner  *MockPlanner
		status   models.RunStatus
		lastType string
	}{
		{
			name:     "infeasible",
			planner:  &MockPlanner{events: runEvents(models.StopInfeasible, &warning, &critique)},
			status:   models.RunStatusInfeasible,
			lastType: models.EventTypeRunEnded,
		},
		{
			name:     "exhausted",
			planner:  &MockPlanner{events: runEvents(models.StopExhausted, nil, &pending)},
			status:   models.RunStatusExhausted,
			lastType: models.EventTypeRunEnded,
		},
		{
			name:     "failed",
			planner:  &MockPlanner{events: runEvents(models.StopAccepted, strPtr("x"), nil)[:2], err: errors.New("upstream 502")},
			status:   models.RunStatusFailed,
			lastType: models.EventTypeRunFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, tt.planner, &MockAssistant{})
			userID := uuid.New()

			run, err := svc.StartPlan(context.Background(), userID, "session-1", tripRequest)
			require.NoError(t, err)

			events := drain(t, svc, userID, run.ID)
			last := events[len(events)-1]
			assert.Equal(t, tt.lastType, last.EventType)

			stored, err := svc.GetRun(context.Background(), userID, run.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, stored.Status)

			_, err = svc.Chat(context.Background(), userID, "session-1", "hello?")
			assert.ErrorIs(t, err, ErrNoItinerary)
		})
	}
}

func TestService_FailedRunRecordsError(t *testing.T) {
	svc, _ := newTestService(t, &MockPlanner{err: errors.New("drafting: upstream 502")}, &MockAssistant{})
	userID := uuid.New()

	run, err := svc.StartPlan(context.Background(), userID, "", tripRequest)
	require.NoError(t, err)

	events := drain(t, svc, userID, run.ID)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTypeRunFailed, events[0].EventType)
	assert.Equal(t, models.StageDrafting, events[0].Stage)
	assert.Contains(t, events[0].Error, "upstream 502")

	stored, err := svc.GetRun(context.Background(), userID, run.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Error)
	assert.Contains(t, *stored.Error, "upstream 502")
	assert.Nil(t, stored.FinalItinerary)
}

func TestService_ChatLifecycle(t *testing.T) {
	itinerary := "Day 1: Louvre"
	gate := make(chan struct{})
	mockPlanner := &MockPlanner{events: runEvents(models.StopAccepted, &itinerary, nil), gate: gate}
	assistant := &MockAssistant{}
	svc, _ := newTestService(t, mockPlanner, assistant)
	userID := uuid.New()
	ctx := context.Background()

	run, err := svc.StartPlan(ctx, userID, "session-1", tripRequest)
	require.NoError(t, err)

	_, err = svc.Chat(ctx, userID, "session-1", "too early?")
	assert.ErrorIs(t, err, ErrNoItinerary)

	close(gate)
	drain(t, svc, userID, run.ID)

	reply, err := svc.Chat(ctx, userID, "session-1", "What's the weather?")
	require.NoError(t, err)
	assert.Equal(t, models.ChatTurn{Role: models.ChatRoleAssistant, Content: "answer to: What's the weather?"}, reply)

	_, err = svc.Chat(ctx, userID, "session-1", "And food?")
	require.NoError(t, err)

	turns, err := svc.Messages(ctx, userID, "session-1")
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, models.ChatRoleUser, turns[2].Role)
	assert.Equal(t, "And food?", turns[2].Content)

	require.Len(t, assistant.histories, 2)
	assert.Len(t, assistant.histories[1], 3)
	assert.Equal(t, []string{itinerary, itinerary}, assistant.itineraries)

	t.Run("a new run in the session clears the chat", func(t *testing.T) {
		mockPlanner.gate = make(chan struct{})
		defer close(mockPlanner.gate)

		_, err := svc.StartPlan(ctx, userID, "session-1", tripRequest)
		require.NoError(t, err)

		turns, err := svc.Messages(ctx, userID, "session-1")
		require.NoError(t, err)
		assert.Empty(t, turns)

		_, err = svc.Chat(ctx, userID, "session-1", "still there?")
		assert.ErrorIs(t, err, ErrNoItinerary)
	})
}

func TestService_ChatGeneratorFailure(t *testing.T) {
	itinerary := "Day 1: Louvre"
	assistant := &MockAssistant{err: errors.New("connection reset")}
	svc, _ := newTestService(t, &MockPlanner{events: runEvents(models.StopAccepted, &itinerary, nil)}, assistant)
	userID := uuid.New()

	run, err := svc.StartPlan(context.Background(), userID, "s", tripRequest)
	require.NoError(t, err)
	drain(t, svc, userID, run.ID)

	_, err = svc.Chat(context.Background(), userID, "s", "hi")
	require.Error(t, err)

	turns, err := svc.Messages(context.Background(), userID, "s")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestService_Ownership(t *testing.T) {
	itinerary := "Day 1"
	svc, _ := newTestService(t, &MockPlanner{events: runEvents(models.StopAccepted, &itinerary, nil)}, &MockAssistant{})
	owner, stranger := uuid.New(), uuid.New()
	ctx := context.Background()

	run, err := svc.StartPlan(ctx, owner, "owner-session", tripRequest)
	require.NoError(t, err)
	drain(t, svc, owner, run.ID)

	_, err = svc.GetRun(ctx, stranger, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = svc.Subscribe(ctx, stranger, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = svc.Messages(ctx, stranger, "owner-session")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Chat(ctx, stranger, "owner-session", "hi")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.GetRun(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = svc.Messages(ctx, owner, "no-such-session")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_StartPlanInForeignSession(t *testing.T) {
	itinerary := "Day 1"
	svc, store := newTestService(t, &MockPlanner{events: runEvents(models.StopAccepted, &itinerary, nil)}, &MockAssistant{})
	alice, bob := uuid.New(), uuid.New()
	ctx := context.Background()

	run, err := svc.StartPlan(ctx, alice, "shared", tripRequest)
	require.NoError(t, err)
	drain(t, svc, alice, run.ID)
	_, err = svc.Chat(ctx, alice, "shared", "Any tips?")
	require.NoError(t, err)

	_, err = svc.StartPlan(ctx, bob, "shared", tripRequest)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	turns, err := svc.Messages(ctx, alice, "shared")
	require.NoError(t, err)
	assert.Len(t, turns, 2)

	_, err = svc.Messages(ctx, bob, "shared")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Len(t, store.runs, 1)
}

func TestService_LiveSubscriberSeesWholeRun(t *testing.T) {
	itinerary := "Day 1"
	gate := make(chan struct{})
	svc, _ := newTestService(t, &MockPlanner{events: runEvents(models.StopAccepted, &itinerary, nil), gate: gate}, &MockAssistant{})
	userID := uuid.New()

	run, err := svc.StartPlan(context.Background(), userID, "", tripRequest)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	first, err := svc.Subscribe(ctx, userID, run.ID)
	require.NoError(t, err)
	second, err := svc.Subscribe(ctx, userID, run.ID)
	require.NoError(t, err)

	close(gate)

	collect := func(ch <-chan models.StageEvent) []models.StageEvent {
		var out []models.StageEvent
		for e := range ch {
			out = append(out, e)
		}
		return out
	}
	a, b := collect(first), collect(second)
	require.Len(t, a, 5)
	assert.Equal(t, a, b)
	assert.True(t, a[4].Terminal())
}

func TestService_ShutdownFailsInFlightRuns(t *testing.T) {
	svc, _ := newTestService(t, &MockPlanner{gate: make(chan struct{})}, &MockAssistant{})
	userID := uuid.New()

	run, err := svc.StartPlan(context.Background(), userID, "", tripRequest)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))

	stored, err := svc.GetRun(context.Background(), userID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
}

func TestService_SuggestDestinations(t *testing.T) {
	svc, _ := newTestService(t, &MockPlanner{}, &MockAssistant{})

	destinations, err := svc.SuggestDestinations(context.Background(), "beaches")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bali, Indonesia"}, destinations)
}
