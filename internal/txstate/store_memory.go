package txstate

import (
	"context"
	"sync"

	"sellergate/pkg/platform/sentinel"
)

// MemoryStore is an in-process Store for development and tests. The
// mutex only guards the map; cross-request coordination still goes
// through the version check, same as the redis-backed store.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (s *MemoryStore) Get(_ context.Context, transactionID string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[transactionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := state
	return &copied, nil
}

func (s *MemoryStore) Put(_ context.Context, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.states[state.TransactionID]
	switch {
	case !ok && state.Version != 1:
		return sentinel.ErrConflict
	case ok && current.Version != state.Version-1:
		return sentinel.ErrConflict
	}
	s.states[state.TransactionID] = *state
	return nil
}
