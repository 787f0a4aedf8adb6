// Package store keeps web sessions in memory. Each session owns one
// studio.Controller; sessions expire after a period without access.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/fpang/ai-vision-studio/internal/studio"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

// DefaultSessionTTL is how long an untouched session is kept.
const DefaultSessionTTL = 1 * time.Hour

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("session not found")

// Session is one user's studio.
type Session struct {
	ID         string
	CreatedAt  time.Time
	Controller *studio.Controller
}

// SessionStore defines session lookup for the web front end.
// Each method is safe for concurrent use.
type SessionStore interface {
	// Create starts a new session in the initial state.
	Create(ctx context.Context) (*Session, error)

	// Get returns the session and extends its lifetime. Returns ErrNotFound
	// when the ID is unknown or expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Delete removes a session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, sessionID string) error

	// Len returns the number of live sessions.
	Len() int
}

// ControllerFactory builds the controller for a new session.
type ControllerFactory func() *studio.Controller

// MemoryStore is a SessionStore backed by go-cache with sliding expiration.
type MemoryStore struct {
	cache      *cache.Cache
	ttl        time.Duration
	newSession ControllerFactory
}

var _ SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore. Expired sessions are purged every ttl/2.
func NewMemoryStore(ttl time.Duration, factory ControllerFactory) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	c := cache.New(ttl, ttl/2)
	c.OnEvicted(func(id string, _ interface{}) {
		log.Debug().Str("session_id", id).Msg("Session evicted")
	})
	return &MemoryStore{cache: c, ttl: ttl, newSession: factory}
}

// Create implements SessionStore.
func (s *MemoryStore) Create(_ context.Context) (*Session, error) {
	sess := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
		Controller: s.newSession(),
	}
	if err := s.cache.Add(sess.ID, sess, s.ttl); err != nil {
		return nil, err
	}
	log.Info().Str("session_id", sess.ID).Int("live_sessions", s.cache.ItemCount()).Msg("Session created")
	return sess, nil
}

// Get implements SessionStore.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	v, found := s.cache.Get(sessionID)
	if !found {
		return nil, ErrNotFound
	}
	sess := v.(*Session)
	s.cache.Set(sessionID, sess, s.ttl)
	return sess, nil
}

// Delete implements SessionStore.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.cache.Delete(sessionID)
	return nil
}

// Len implements SessionStore.
func (s *MemoryStore) Len() int {
	return s.cache.ItemCount()
}
