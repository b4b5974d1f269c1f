package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/loadkit/pkg/domain"
)

// Store implements ports.JournalStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.LoadRecord
	mu   sync.RWMutex
}

// NewStore creates a new in-memory journal.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.LoadRecord),
	}
}

// Append stores the record.
func (s *Store) Append(ctx context.Context, record domain.LoadRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[record.ID] = record
	return nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (domain.LoadRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[id]
	if !ok {
		return domain.LoadRecord{}, domain.ErrRecordNotFound
	}
	return rec, nil
}

// List returns records, most recent first.
func (s *Store) List(ctx context.Context, limit int) ([]domain.LoadRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.LoadRecord, 0, len(s.data))
	for _, r := range s.data {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
