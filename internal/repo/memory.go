package meta

import (
	"context"
	"sort"
	"sync"

	"github.com/sir_venger/resumable_lite/internal/models"
	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// MemoryStore хранит метаданные только в оперативной памяти; удобно для тестов.
type MemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]models.Artifact
}

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{artifacts: map[string]models.Artifact{}}
}

// Get возвращает метаданные артефакта по имени или ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, name string) (models.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[name]
	if !ok {
		return models.Artifact{}, transferproto.ErrNotFound
	}
	return a, nil
}

// Save записывает (или обновляет) метаданные целиком.
func (s *MemoryStore) Save(_ context.Context, a models.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[a.Name] = a
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, name)
	return nil
}

// List возвращает все записи, отсортированные по имени.
func (s *MemoryStore) List(_ context.Context) ([]models.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Artifact, 0, len(s.artifacts))
	for _, a := range s.artifacts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
