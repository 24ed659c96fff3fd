package blob

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// MemoryStore keeps blobs in process memory. It holds at most capacity
// blobs and never evicts: a referenced video must stay playable, so a full
// store rejects new blobs with ErrFull instead.
type MemoryStore struct {
	capacity int

	mu    sync.RWMutex
	blobs map[string]Blob
}

// NewMemoryStore creates a store holding at most capacity blobs.
func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("blob store capacity must be positive, got %d", capacity)
	}
	return &MemoryStore{capacity: capacity, blobs: make(map[string]Blob)}, nil
}

// Put stores b, replacing any blob with the same id.
func (s *MemoryStore) Put(_ context.Context, b Blob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blobs[b.ID]; !exists && len(s.blobs) >= s.capacity {
		log.Warn().Str("blob_id", b.ID).Int("capacity", s.capacity).Msg("Memory blob store full")
		return ErrFull
	}
	s.blobs[b.ID] = b
	return nil
}

// Get returns the blob with the given id.
func (s *MemoryStore) Get(_ context.Context, id string) (*Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

// Delete removes the blob with the given id.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.blobs[id]; ok {
		delete(s.blobs, id)
		log.Debug().Str("blob_id", id).Int("bytes", len(b.Data)).Msg("Deleted blob from memory store")
	}
	return nil
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
