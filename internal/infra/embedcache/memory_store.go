package embedcache

import (
	"context"
	"sync"

	"github.com/yanqian/faq-matcher/internal/domain/faq"
)

// MemoryStore keeps vectors in process memory. Useful for tests and for
// sharing vectors between matchers rebuilt in one process.
type MemoryStore struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vectors: make(map[string][]float32)}
}

// GetMany implements faq.EmbeddingCache.
func (s *MemoryStore) GetMany(_ context.Context, keys []string) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]float32, len(keys))
	for _, key := range keys {
		if vec, ok := s.vectors[key]; ok {
			out[key] = append([]float32(nil), vec...)
		}
	}
	return out, nil
}

// PutMany implements faq.EmbeddingCache.
func (s *MemoryStore) PutMany(_ context.Context, vectors map[string][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, vec := range vectors {
		s.vectors[key] = append([]float32(nil), vec...)
	}
	return nil
}

// Len reports the number of cached vectors.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

var _ faq.EmbeddingCache = (*MemoryStore)(nil)
