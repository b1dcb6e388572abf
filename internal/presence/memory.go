package presence

import (
	"context"
	"sync"
)

// MemoryStore keeps presence in process. Owned by whoever constructs it.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]Presence
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: map[string]Presence{}}
}

func (s *MemoryStore) Put(_ context.Context, p Presence) error {
	s.mu.Lock()
	s.recs[p.DriverID] = p
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, driverID string) (Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.recs[driverID]
	if !ok {
		return Presence{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Presence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Presence, 0, len(s.recs))
	for _, p := range s.recs {
		out = append(out, p)
	}
	return out, nil
}
