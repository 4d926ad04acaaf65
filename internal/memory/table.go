package memory

import (
	"slices"
	"sync"

	"github.com/roach88/tabula/internal/value"
)

// Table holds one object's records keyed by value.IDKey, in insertion order.
type Table struct {
	mu    sync.RWMutex
	order []string
	rows  map[string]*value.Record
}

func newTable() *Table {
	return &Table{rows: make(map[string]*value.Record)}
}

// Len returns the number of records.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Get returns the stored record for key. Callers must not modify it.
func (t *Table) Get(key string) (*value.Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.rows[key]
	return rec, ok
}

// Insert adds rec under key unless the key is taken.
// It reports whether rec was stored.
func (t *Table) Insert(key string, rec *value.Record) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.rows[key]; exists {
		return false
	}
	t.rows[key] = rec
	t.order = append(t.order, key)
	return true
}

// Replace swaps the record under key for fn(existing), keeping its position.
// fn runs with the write lock held. Replace reports false when key is absent.
func (t *Table) Replace(key string, fn func(existing *value.Record) *value.Record) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	existing, ok := t.rows[key]
	if !ok {
		return false
	}
	t.rows[key] = fn(existing)
	return true
}

// Remove deletes the record under key and reports whether it existed.
func (t *Table) Remove(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[key]; !ok {
		return false
	}
	delete(t.rows, key)
	if i := slices.Index(t.order, key); i >= 0 {
		t.order = slices.Delete(t.order, i, i+1)
	}
	return true
}

// Snapshot returns the stored records in insertion order.
//
// The slice is fresh; the records are shared and must not be modified.
func (t *Table) Snapshot() []*value.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*value.Record, len(t.order))
	for i, key := range t.order {
		out[i] = t.rows[key]
	}
	return out
}
