package orchestration

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
)

var (
	// ErrRunNotFound is returned for unknown runs and for runs owned by someone else.
	ErrRunNotFound = errors.New("run not found")
	// ErrInvalidTransition is returned when a run status change is not allowed.
	ErrInvalidTransition = errors.New("invalid run status transition")
	// ErrUserNotFound is returned when no account matches an email.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when an email is already registered.
	ErrUserExists = errors.New("user already exists")
)

// RunStore persists planning runs and their events.
type RunStore interface {
	CreateRun(ctx context.Context, run *models.Run) error
	// UpdateRun writes the run's mutable fields after checking that the
	// status change is allowed.
	UpdateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)
	AppendEvent(ctx context.Context, event models.StageEvent) error
	ListEvents(ctx context.Context, runID uuid.UUID) ([]models.StageEvent, error)
}

// UserStore looks up and registers accounts.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// validateRunTransition validates if a status transition is allowed
func validateRunTransition(current, next models.RunStatus) error {
	validTransitions := map[models.RunStatus][]models.RunStatus{
		models.RunStatusPending:    {models.RunStatusPlanning, models.RunStatusFailed},
		models.RunStatusPlanning:   {models.RunStatusAccepted, models.RunStatusInfeasible, models.RunStatusExhausted, models.RunStatusFailed},
		models.RunStatusAccepted:   {},
		models.RunStatusInfeasible: {},
		models.RunStatusExhausted:  {},
		models.RunStatusFailed:     {},
	}

	allowedNext, exists := validTransitions[current]
	if !exists {
		return fmt.Errorf("%w: unknown current status %s", ErrInvalidTransition, current)
	}
	if !slices.Contains(allowedNext, next) {
		return fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, current, next)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryStore keeps runs, events and users in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[uuid.UUID]models.Run
	events map[uuid.UUID][]models.StageEvent
	users  map[string]models.User
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:   make(map[uuid.UUID]models.Run),
		events: make(map[uuid.UUID][]models.StageEvent),
		users:  make(map[string]models.User),
	}
}

func (s *MemoryStore) CreateRun(ctx context.Context, run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("failed to create run: duplicate id %s", run.ID)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	s.runs[run.ID] = cloneRun(*run)
	return nil
}

func (s *MemoryStore) UpdateRun(ctx context.Context, run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.runs[run.ID]
	if !ok {
		return ErrRunNotFound
	}
	if err := validateRunTransition(current.Status, run.Status); err != nil {
		return err
	}
	s.runs[run.ID] = cloneRun(*run)
	return nil
}

func (s *MemoryStore) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	run = cloneRun(run)
	return &run, nil
}

func (s *MemoryStore) AppendEvent(ctx context.Context, event models.StageEvent) error {
	id, err := uuid.Parse(event.RunID)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return ErrRunNotFound
	}
	s.events[id] = append(s.events[id], event)
	return nil
}

func (s *MemoryStore) ListEvents(ctx context.Context, runID uuid.UUID) ([]models.StageEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, ErrRunNotFound
	}
	return slices.Clone(s.events[runID]), nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[normalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(user.Email)
	if _, exists := s.users[email]; exists {
		return fmt.Errorf("%w: %s", ErrUserExists, email)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Email = email
	s.users[email] = *user
	return nil
}

func cloneRun(run models.Run) models.Run {
	run.Request.Interests = slices.Clone(run.Request.Interests)
	return run
}
