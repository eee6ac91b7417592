package repository

import (
	"context"
	"sync"

	"github.com/okian/docrisk/internal/domain/model"
	"github.com/okian/docrisk/pkg/metrics"
)

const defaultCapacity = 10_000

// MemoryStore keeps records in memory with first-in first-out eviction.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]model.Record
	order    []string // insertion order, oldest first
	capacity int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty bounded store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	s.records = make(map[string]model.Record, s.capacity)
	return s
}

// Save inserts or replaces a record. Replacing keeps the original position
// in the eviction order.
func (s *MemoryStore) Save(_ context.Context, r model.Record) error {
	if r.DocumentID == "" {
		return ErrEmptyDocumentID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[r.DocumentID]; !ok {
		if len(s.order) >= s.capacity {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.records, oldest)
		}
		s.order = append(s.order, r.DocumentID)
	}
	s.records[r.DocumentID] = r
	metrics.UpdateReportsStored(len(s.records))
	return nil
}

// Get returns the record of documentID.
func (s *MemoryStore) Get(_ context.Context, documentID string) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[documentID]
	if !ok {
		return model.Record{}, ErrNotFound
	}
	return r, nil
}

// Stats counts records by status and band.
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{ByBand: map[string]int{}}
	for _, r := range s.records {
		st.add(r)
	}
	return st, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
