package orchestration

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
)

var (
	// ErrSessionNotFound is returned for unknown or expired chat sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoItinerary is returned when chatting before the session's run was accepted.
	ErrNoItinerary = errors.New("session has no accepted itinerary")
)

// session is the chat state of one traveller session. It is replaced
// wholesale when a new run starts in the session.
type session struct {
	mu        sync.Mutex
	userID    uuid.UUID
	runID     uuid.UUID
	itinerary *string
	turns     []models.ChatTurn
}

// sessionStore keeps sessions in a TTL cache; every access refreshes the TTL.
type sessionStore struct {
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
}

func newSessionStore(ttl time.Duration) *sessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &sessionStore{
		cache: cache.New(ttl, ttl/2),
		ttl:   ttl,
	}
}

// reset starts a fresh session bound to a new run, discarding any chat history.
// A session owned by another user is reported as not found and left untouched.
func (s *sessionStore) reset(id string, userID, runID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(id); ok && v.(*session).userID != userID {
		return ErrSessionNotFound
	}
	s.cache.Set(id, &session{userID: userID, runID: runID}, s.ttl)
	return nil
}

// get returns the session if it exists and belongs to userID.
func (s *sessionStore) get(id string, userID uuid.UUID) (*session, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess := v.(*session)
	if sess.userID != userID {
		return nil, ErrSessionNotFound
	}
	s.cache.Set(id, sess, s.ttl)
	return sess, nil
}

// accept attaches the accepted itinerary, unless a newer run replaced the session.
func (s *sessionStore) accept(id string, runID uuid.UUID, itinerary string) {
	v, ok := s.cache.Get(id)
	if !ok {
		return
	}
	sess := v.(*session)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.runID == runID {
		sess.itinerary = &itinerary
	}
}

func (sess *session) history() []models.ChatTurn {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return slices.Clone(sess.turns)
}
