package knowledge

import (
	"context"
	"sync"
)

// MemoryStore keeps chunks in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks []Chunk
	ids    map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ids: make(map[string]struct{})}
}

func (s *MemoryStore) Add(_ context.Context, chunks []Chunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, c := range chunks {
		if _, exists := s.ids[c.ID]; exists {
			continue
		}
		s.ids[c.ID] = struct{}{}
		s.chunks = append(s.chunks, c)
		added++
	}
	return added, nil
}

func (s *MemoryStore) Query(_ context.Context, vector []float32, n int, minScore float32) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return rank(vector, s.chunks, n, minScore), nil
}

// Len returns the number of stored chunks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
