package planner

import (
	"context"
	"sync"
)

// SessionStore keeps per-user standing instructions and the most recent
// plan. Implementations must be safe for concurrent use; concurrent writes
// for the same user are last-writer-wins.
type SessionStore interface {
	Instructions(ctx context.Context, userID string) (string, bool, error)
	SetInstructions(ctx context.Context, userID, text string) error
	ClearInstructions(ctx context.Context, userID string) error
	LastPlan(ctx context.Context, userID string) (string, bool, error)
	SetLastPlan(ctx context.Context, userID, text string) error
}

// MemoryStore is a SessionStore that lives for the process lifetime.
type MemoryStore struct {
	mu           sync.RWMutex
	instructions map[string]string
	plans        map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		instructions: make(map[string]string),
		plans:        make(map[string]string),
	}
}

func (s *MemoryStore) Instructions(_ context.Context, userID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.instructions[userID]
	return v, ok, nil
}

func (s *MemoryStore) SetInstructions(_ context.Context, userID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instructions[userID] = text
	return nil
}

func (s *MemoryStore) ClearInstructions(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.instructions, userID)
	return nil
}

func (s *MemoryStore) LastPlan(_ context.Context, userID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.plans[userID]
	return v, ok, nil
}

func (s *MemoryStore) SetLastPlan(_ context.Context, userID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[userID] = text
	return nil
}
