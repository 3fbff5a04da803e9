// Package orchestration runs planning requests in the background, archives
// them and owns the follow-up chat sessions.
package orchestration

import (
	"context"
	"fmt"
	"iter"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/agent-builder/travel-planner/internal/metrics"
	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
	"github.com/bizmatters/agent-builder/travel-planner/internal/planner"
)

// Planner runs the revision loop for one request.
type Planner interface {
	Run(ctx context.Context, req models.TripRequest) iter.Seq2[planner.Event, error]
}

// Assistant answers follow-up questions about an itinerary.
type Assistant interface {
	Reply(ctx context.Context, history []models.ChatTurn, itinerary string) (string, error)
}

// Suggester proposes destinations for a theme.
type Suggester interface {
	SuggestDestinations(ctx context.Context, theme string) ([]string, error)
}

// Options configures a Service.
type Options struct {
	Planner    Planner
	Assistant  Assistant
	Suggester  Suggester
	Store      RunStore
	Metrics    *metrics.PlanMetrics
	Provider   string
	SessionTTL time.Duration
}

// Service handles planning run orchestration and chat sessions
type Service struct {
	planner   Planner
	assistant Assistant
	suggester Suggester
	store     RunStore
	metrics   *metrics.PlanMetrics
	provider  string
	sessions  *sessionStore
	tracer    trace.Tracer

	mu      sync.Mutex
	streams map[uuid.UUID]*runStream

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a new orchestration service
func NewService(opts Options) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		planner:   opts.Planner,
		assistant: opts.Assistant,
		suggester: opts.Suggester,
		store:     opts.Store,
		metrics:   opts.Metrics,
		provider:  opts.Provider,
		sessions:  newSessionStore(opts.SessionTTL),
		tracer:    otel.Tracer("travel-planner"),
		streams:   make(map[uuid.UUID]*runStream),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// StartPlan archives a new run, resets the session's chat and starts the
// revision loop in the background. An empty sessionID starts a new session;
// another user's session ID yields ErrSessionNotFound.
func (s *Service) StartPlan(ctx context.Context, userID uuid.UUID, sessionID string, req models.TripRequest) (*models.Run, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	run := &models.Run{
		ID:        uuid.New(),
		UserID:    userID,
		SessionID: sessionID,
		Request:   req,
		Status:    models.RunStatusPending,
	}
	if err := s.sessions.reset(sessionID, userID, run.ID); err != nil {
		return nil, err
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	stream := newRunStream()
	s.mu.Lock()
	s.streams[run.ID] = stream
	s.mu.Unlock()

	s.metrics.RecordRunStarted(ctx, s.provider)

	log.Printf(`{"level":"info","message":"Planning run started","run_id":"%s","session_id":"%s","user_id":"%s"}`,
		run.ID, sessionID, userID)

	s.wg.Add(1)
	go s.execute(*run, stream)

	return run, nil
}

// execute drives one run to a terminal status, publishing and archiving every event.
func (s *Service) execute(run models.Run, stream *runStream) {
	defer s.wg.Done()
	defer s.dropStream(run.ID)

	ctx, span := s.tracer.Start(s.ctx, "orchestration.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", run.ID.String()),
		attribute.String("session.id", run.SessionID),
	)

	started := time.Now()
	sequence := 0
	emit := func(event models.StageEvent) {
		sequence++
		event.RunID = run.ID.String()
		event.Sequence = sequence
		event.Timestamp = time.Now().UTC()
		if err := s.store.AppendEvent(context.WithoutCancel(ctx), event); err != nil {
			log.Printf(`{"level":"error","message":"Failed to archive event","run_id":"%s","error":%q}`, run.ID, err)
		}
		stream.publish(event)
	}
	fail := func(stage models.Stage, err error) {
		span.RecordError(err)
		log.Printf(`{"level":"error","message":"Planning run failed","run_id":"%s","stage":"%s","error":%q}`, run.ID, stage, err)

		msg := err.Error()
		now := time.Now().UTC()
		run.Status = models.RunStatusFailed
		run.Error = &msg
		run.CompletedAt = &now
		if err := s.store.UpdateRun(context.WithoutCancel(ctx), &run); err != nil {
			log.Printf(`{"level":"error","message":"Failed to update run status","run_id":"%s","error":%q}`, run.ID, err)
		}
		emit(models.StageEvent{EventType: models.EventTypeRunFailed, Stage: stage, Revision: run.RevisionNumber, Error: msg})
		s.metrics.RecordRunFinished(ctx, string(run.Status), run.RevisionNumber, time.Since(started))
	}

	run.Status = models.RunStatusPlanning
	if err := s.store.UpdateRun(ctx, &run); err != nil {
		run.Status = models.RunStatusPending
		fail("", fmt.Errorf("failed to mark run as planning: %w", err))
		return
	}

	var last planner.Event
	for event, err := range s.planner.Run(ctx, run.Request) {
		if err != nil {
			fail(event.Stage, err)
			return
		}
		last = event
		run.RevisionNumber = event.Revision

		s.metrics.RecordStage(ctx, string(event.Stage), event.Duration)
		if event.Stage == models.StageResearching {
			s.metrics.RecordSearchFailures(ctx, lo.CountBy(event.Delta.SearchResults, planner.IsErrorBlob))
		}
		emit(stageEvent(event))
	}
	if last.State == nil {
		fail("", fmt.Errorf("planner produced no events"))
		return
	}

	now := time.Now().UTC()
	run.Status = models.StatusForStop(last.Stop)
	run.FinalItinerary = last.State.FinalItinerary
	run.Critique = last.State.Critique
	run.CompletedAt = &now
	if err := s.store.UpdateRun(context.WithoutCancel(ctx), &run); err != nil {
		log.Printf(`{"level":"error","message":"Failed to update run status","run_id":"%s","error":%q}`, run.ID, err)
	}
	if run.Status == models.RunStatusAccepted && run.FinalItinerary != nil {
		s.sessions.accept(run.SessionID, run.ID, *run.FinalItinerary)
	}

	span.SetAttributes(
		attribute.String("run.status", string(run.Status)),
		attribute.Int("run.revisions", run.RevisionNumber),
	)
	log.Printf(`{"level":"info","message":"Planning run finished","run_id":"%s","status":"%s","revisions":%d}`,
		run.ID, run.Status, run.RevisionNumber)

	emit(models.StageEvent{EventType: models.EventTypeRunEnded, Revision: run.RevisionNumber, Stop: last.Stop})
	s.metrics.RecordRunFinished(ctx, string(run.Status), run.RevisionNumber, time.Since(started))
}

func stageEvent(event planner.Event) models.StageEvent {
	delta := event.Delta
	out := models.StageEvent{
		EventType: models.EventTypeStageCompleted,
		Stage:     event.Stage,
		Revision:  event.Revision,
		Delta:     &delta,
		Stop:      event.Stop,
	}
	if event.Outcome != nil {
		out.Outcome = event.Outcome.Kind()
	}
	return out
}

func (s *Service) dropStream(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streams, id)
}

// GetRun returns a run owned by userID.
func (s *Service) GetRun(ctx context.Context, userID, runID uuid.UUID) (*models.Run, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.UserID != userID {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// Subscribe streams a run's events from the first one. The channel is closed
// after the terminal event, or when ctx is done.
func (s *Service) Subscribe(ctx context.Context, userID, runID uuid.UUID) (<-chan models.StageEvent, error) {
	if _, err := s.GetRun(ctx, userID, runID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	stream := s.streams[runID]
	s.mu.Unlock()

	if stream != nil {
		history, live := stream.subscribe()
		return forward(ctx, history, live, func() { stream.unsubscribe(live) }), nil
	}

	events, err := s.store.ListEvents(ctx, runID)
	if err != nil {
		return nil, err
	}
	return forward(ctx, events, nil, func() {}), nil
}

// Chat answers one user message in a session whose run was accepted.
func (s *Service) Chat(ctx context.Context, userID uuid.UUID, sessionID, message string) (models.ChatTurn, error) {
	sess, err := s.sessions.get(sessionID, userID)
	if err != nil {
		return models.ChatTurn{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.itinerary == nil {
		return models.ChatTurn{}, ErrNoItinerary
	}

	history := append(slices.Clone(sess.turns), models.ChatTurn{Role: models.ChatRoleUser, Content: message})
	reply, err := s.assistant.Reply(ctx, history, *sess.itinerary)
	if err != nil {
		s.metrics.RecordChatTurn(ctx, true)
		return models.ChatTurn{}, fmt.Errorf("failed to answer chat message: %w", err)
	}

	answer := models.ChatTurn{Role: models.ChatRoleAssistant, Content: reply}
	sess.turns = append(history, answer)
	s.metrics.RecordChatTurn(ctx, false)

	return answer, nil
}

// Messages returns the chat history of a session.
func (s *Service) Messages(ctx context.Context, userID uuid.UUID, sessionID string) ([]models.ChatTurn, error) {
	sess, err := s.sessions.get(sessionID, userID)
	if err != nil {
		return nil, err
	}
	return sess.history(), nil
}

// SuggestDestinations proposes destinations for a free-text theme.
func (s *Service) SuggestDestinations(ctx context.Context, theme string) ([]string, error) {
	return s.suggester.SuggestDestinations(ctx, theme)
}

// Shutdown cancels in-flight runs and waits for them to record their outcome.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
