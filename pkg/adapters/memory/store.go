package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/otec/pkg/domain"
)

// Store implements ports.LogStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[int][]domain.Record
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[int][]domain.Record),
	}
}

// Append stores a copy of the record.
func (s *Store) Append(ctx context.Context, entityID int, rec domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[entityID] = append(s.data[entityID], cloneRecord(rec))
	return nil
}

// Load returns copies of the entity's records.
func (s *Store) Load(ctx context.Context, entityID int) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, ok := s.data[entityID]
	if !ok {
		return nil, domain.ErrEntityNotFound
	}

	out := make([]domain.Record, len(recs))
	for i, r := range recs {
		out[i] = cloneRecord(r)
	}
	return out, nil
}

// Delete removes the entity's log.
func (s *Store) Delete(ctx context.Context, entityID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, entityID)
	return nil
}

// List returns all entity IDs in ascending order.
func (s *Store) List(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data)), nil
}

// Deep copy to ensure isolation, similar to serialization.
func cloneRecord(r domain.Record) domain.Record {
	muts := make([]map[string]any, len(r.Mutations))
	for i, m := range r.Mutations {
		muts[i] = maps.Clone(m)
	}
	r.Mutations = muts
	return r
}
