package tent

import (
	"context"
	"sync"
)

// Store is the durable tent collection, keyed by id and ordered by creation.
type Store interface {
	// Get returns the tent with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Tent, error)
	// Put inserts or fully replaces the tent with t.ID.
	Put(ctx context.Context, t *Tent) error
	// List returns all tents in creation order.
	List(ctx context.Context) ([]*Tent, error)
}

// MemoryStore keeps tents in a mutex-guarded map. Used by tests and as a
// stand-in when no database is available.
type MemoryStore struct {
	mu    sync.RWMutex
	tents map[string]*Tent
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tents: make(map[string]*Tent)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Tent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tents[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (s *MemoryStore) Put(ctx context.Context, t *Tent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tents[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.tents[t.ID] = t.Clone()
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Tent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Tent, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tents[id].Clone())
	}
	return out, nil
}
