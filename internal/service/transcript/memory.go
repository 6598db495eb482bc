package transcript

import (
	"context"
	"sync"
)

// MemoryStore implements Store with maps, for tests and store-less dev runs.
type MemoryStore struct {
	mu      sync.RWMutex
	fields  map[string]map[string]any
	entries map[string][]Entry
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		fields:  make(map[string]map[string]any),
		entries: make(map[string][]Entry),
	}
}

// CreateRecord stores a copy of the initial fields.
func (s *MemoryStore) CreateRecord(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	s.fields[id] = copied
	if _, ok := s.entries[id]; !ok {
		s.entries[id] = make([]Entry, 0, 16)
	}
	return nil
}

// AppendMessage appends one entry, creating the array on first use.
func (s *MemoryStore) AppendMessage(_ context.Context, id string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fields[id]; !ok {
		return ErrRecordNotFound
	}
	s.entries[id] = append(s.entries[id], entry)
	return nil
}

// UpdateRecord merges fields into an existing record.
func (s *MemoryStore) UpdateRecord(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.fields[id]
	if !ok {
		return ErrRecordNotFound
	}
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}

// ListCompleted filters records whose status field is "completed".
func (s *MemoryStore) ListCompleted(_ context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for id, fields := range s.fields {
		if fields["status"] != "completed" {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		copiedFields := make(map[string]any, len(fields))
		for k, v := range fields {
			copiedFields[k] = v
		}
		copiedEntries := make([]Entry, len(s.entries[id]))
		copy(copiedEntries, s.entries[id])
		out = append(out, Record{Fields: copiedFields, Entries: copiedEntries})
	}
	return out, nil
}

// GetRecord returns a copy of the stored record.
func (s *MemoryStore) GetRecord(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.fields[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}

	copiedFields := make(map[string]any, len(fields))
	for k, v := range fields {
		copiedFields[k] = v
	}
	copiedEntries := make([]Entry, len(s.entries[id]))
	copy(copiedEntries, s.entries[id])

	return Record{Fields: copiedFields, Entries: copiedEntries}, nil
}
