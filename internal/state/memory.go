package state

import (
	"maps"
	"sync"
)

// MemoryStore is an in-process Store for tests and benchmarks.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	saves   int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}}
}

func (s *MemoryStore) Load() (map[string]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.records), nil
}

func (s *MemoryStore) Save(records map[string]Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = maps.Clone(records)
	if s.records == nil {
		s.records = map[string]Record{}
	}
	s.saves++
	return nil
}

func (s *MemoryStore) Update(table string, fn func(Record, bool) (Record, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.records[table]
	next, err := fn(current, ok)
	if err != nil {
		return err
	}
	s.records[table] = next
	s.saves++
	return nil
}

// Saves returns how many writes the store has accepted.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
