package ticket

import (
	"context"
	"sync"
)

// MemoryStore is the in-process cache used by tests and single-shot CLI
// runs. It intentionally favors clarity over performance.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[Fingerprint]CachedTicket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[Fingerprint]CachedTicket)}
}

func (s *MemoryStore) Get(_ context.Context, fp Fingerprint) (CachedTicket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tickets[fp]; ok {
		return t, nil
	}
	return CachedTicket{}, ErrNotFound
}

func (s *MemoryStore) Put(_ context.Context, fp Fingerprint, t CachedTicket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[fp] = t
	return nil
}
