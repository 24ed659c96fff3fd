package store

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore implements PromptStore in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	prompts map[string][]SavedPrompt // owner -> prompts, newest first
}

// Compile-time interface check.
var _ PromptStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prompts: make(map[string][]SavedPrompt)}
}

func (s *MemoryStore) PutPrompt(_ context.Context, owner string, p SavedPrompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[owner] = append([]SavedPrompt{p}, s.prompts[owner]...)
	return nil
}

func (s *MemoryStore) ListPrompts(_ context.Context, owner string) ([]SavedPrompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.prompts[owner])
	if out == nil {
		out = []SavedPrompt{}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) DeletePrompt(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[owner] = slices.DeleteFunc(s.prompts[owner], func(p SavedPrompt) bool { return p.ID == id })
	return nil
}
