package ratelimit

import (
	"context"
	"sync"
)

// MemoryStore keeps state for the process lifetime.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]State
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]State)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.users[userID]
	return st, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, userID string, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = st
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	return nil
}

// Len returns the number of tracked users.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
