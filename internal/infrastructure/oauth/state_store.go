// Package oauth implements the OAuth2 Authorization-Code-with-PKCE client
// for the banking provider, together with the short-lived authorization
// attempt store and the per-user token store it depends on.
package oauth

import (
	"sync"
	"time"

	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
)

// AttemptStore holds pending authorization attempts keyed by state token.
// The reference implementation is in-memory, but the contract tolerates a
// durable store: attempts may straddle process restarts in production.
type AttemptStore interface {
	// Save records a pending attempt under its state token.
	Save(attempt model.AuthorizationAttempt) error

	// Consume looks up and atomically deletes the attempt, guaranteeing
	// single use. Returns model.ErrInvalidState for unknown (or already
	// consumed) states and model.ErrStateExpired for attempts past their
	// TTL; expired attempts are deleted as well.
	Consume(state string) (model.AuthorizationAttempt, error)

	// PruneExpired removes attempts past their TTL and returns how many
	// were dropped.
	PruneExpired() int
}

// MemoryAttemptStore is the in-process AttemptStore.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	attempts map[string]model.AuthorizationAttempt
	now      func() time.Time
}

var _ AttemptStore = (*MemoryAttemptStore)(nil)

// NewMemoryAttemptStore creates an empty in-memory attempt store.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{
		attempts: make(map[string]model.AuthorizationAttempt),
		now:      time.Now,
	}
}

// Save records a pending attempt under its state token.
func (s *MemoryAttemptStore) Save(attempt model.AuthorizationAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.State] = attempt
	return nil
}

// Consume looks up and atomically deletes the attempt.
func (s *MemoryAttemptStore) Consume(state string) (model.AuthorizationAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[state]
	if !ok {
		return model.AuthorizationAttempt{}, model.ErrInvalidState
	}
	delete(s.attempts, state)

	if attempt.ExpiredAt(s.now()) {
		return model.AuthorizationAttempt{}, model.ErrStateExpired
	}
	return attempt, nil
}

// PruneExpired removes attempts past their TTL.
func (s *MemoryAttemptStore) PruneExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	pruned := 0
	for state, attempt := range s.attempts {
		if attempt.ExpiredAt(now) {
			delete(s.attempts, state)
			pruned++
		}
	}
	return pruned
}

// Len returns the number of pending attempts.
func (s *MemoryAttemptStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}
