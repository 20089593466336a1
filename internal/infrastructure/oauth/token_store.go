package oauth

import (
	"sync"

	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
)

// TokenStore holds at most one TokenRecord per user. It carries no business
// logic; the OAuth2 client is the only mutator. WithUserLock is part of the
// contract so that a durable replacement preserves the per-user
// serialization of "check expiry, refresh, update record".
type TokenStore interface {
	// Get returns the user's token record, if any.
	Get(userID string) (model.TokenRecord, bool)

	// Put stores or replaces the user's token record.
	Put(record model.TokenRecord)

	// Remove deletes the user's token record and reports whether one existed.
	Remove(userID string) bool

	// WithUserLock runs fn while holding the user's critical section.
	// Concurrent calls for the same user serialize; different users do not
	// contend beyond the store's own internal lock.
	WithUserLock(userID string, fn func())
}

// MemoryTokenStore is the in-process TokenStore.
type MemoryTokenStore struct {
	mu      sync.Mutex
	records map[string]model.TokenRecord
	locks   map[string]*sync.Mutex
}

var _ TokenStore = (*MemoryTokenStore)(nil)

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		records: make(map[string]model.TokenRecord),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Get returns the user's token record, if any.
func (s *MemoryTokenStore) Get(userID string) (model.TokenRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[userID]
	return record, ok
}

// Put stores or replaces the user's token record.
func (s *MemoryTokenStore) Put(record model.TokenRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.UserID] = record
}

// Remove deletes the user's token record.
func (s *MemoryTokenStore) Remove(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[userID]
	delete(s.records, userID)
	return ok
}

// WithUserLock runs fn while holding the user's mutex. User mutexes are
// created on first use and kept for the life of the store; the per-user key
// space is bounded by the user population.
func (s *MemoryTokenStore) WithUserLock(userID string, fn func()) {
	s.mu.Lock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	fn()
}
