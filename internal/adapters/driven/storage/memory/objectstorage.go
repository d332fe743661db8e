package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure ObjectStorage implements the interface.
var _ driven.ObjectStorage = (*ObjectStorage)(nil)

// ObjectStorage keeps raw uploads in memory.
type ObjectStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewObjectStorage creates a new in-memory object storage.
func NewObjectStorage() *ObjectStorage {
	return &ObjectStorage{objects: make(map[string][]byte)}
}

// Put stores data at path.
func (s *ObjectStorage) Put(_ context.Context, path string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = append([]byte(nil), data...)
	return nil
}

// Get returns the data at path.
func (s *ObjectStorage) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Delete removes the data at path.
func (s *ObjectStorage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}
