package memory

import (
	"maps"
	"slices"
	"sync"
)

// Store maps object names to tables. Tables are created on first write.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{tables: make(map[string]*Table)}
}

// Table returns the table for object, or nil if nothing was ever written to it.
func (s *Store) Table(object string) *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables[object]
}

// Ensure returns the table for object, creating it if needed.
func (s *Store) Ensure(object string) *Table {
	if t := s.Table(object); t != nil {
		return t
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tables[object]; ok {
		return t
	}
	t := newTable()
	s.tables[object] = t
	return t
}

// Objects returns the names of existing tables, sorted.
func (s *Store) Objects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.tables))
}
