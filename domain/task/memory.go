package task

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]Task
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]Task)}
}

// Create stores a copy of t. An id that is already stored is rejected.
func (s *MemoryStore) Create(_ context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; ok {
		return ErrDuplicate
	}
	s.tasks[t.ID] = *t
	return nil
}

// Get returns a copy of the stored task.
func (s *MemoryStore) Get(_ context.Context, id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

// List returns matching tasks newest first.
func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if filter.Matches(t) {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return Newer(result[i], result[j]) })
	return result, nil
}

// Transition applies the status change under the store lock.
func (s *MemoryStore) Transition(_ context.Context, id string, from, to Status, acceptedBy string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	if acceptedBy != "" {
		t.AcceptedBy = acceptedBy
	}
	t.UpdatedAt = at
	s.tasks[id] = t
	return true, nil
}
