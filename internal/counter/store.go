package counter

import (
	"context"
	"sync"
)

// Store persists the counter value under a single fixed key.
// Both operations must be durable before returning.
type Store interface {
	// Get returns the current value, or 0 if none has been written yet.
	Get(ctx context.Context) (int64, error)
	// Put overwrites the current value.
	Put(ctx context.Context, value int64) error
}

// MemoryStore is a non-durable Store for tests and single-process development.
type MemoryStore struct {
	mu    sync.Mutex
	value int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}

func (s *MemoryStore) Put(_ context.Context, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	return nil
}

// Ping implements the readiness check; memory is always ready.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}
