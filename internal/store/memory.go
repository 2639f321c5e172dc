package store

import (
	"errors"
	"sync"

	"github.com/i474232898/zukan/internal/zukan"
)

var (
	// ErrNotFound is returned when no saved entry has the requested id.
	ErrNotFound = errors.New("entry not found")
)

// MemoryStore is a concurrency-safe, append-only, in-memory list of saved
// entries. Nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex

	entries []zukan.Entry
	// id -> position in entries
	index map[string]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: make(map[string]int),
	}
}

// Append adds a copy of e at the end of the list.
func (s *MemoryStore) Append(e zukan.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e.Clone())
	if e.ID != "" {
		if _, exists := s.index[e.ID]; !exists {
			s.index[e.ID] = len(s.entries) - 1
		}
	}
}

// List returns copies of all entries in insertion order.
func (s *MemoryStore) List() []zukan.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]zukan.Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out
}

// Get returns the entry with the given id.
func (s *MemoryStore) Get(id string) (zukan.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return zukan.Entry{}, ErrNotFound
	}
	return s.entries[i].Clone(), nil
}

// Len returns the number of saved entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}
