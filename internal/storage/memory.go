package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/sir_venger/resumable_lite/pkg/transferproto"
)

// MemoryStore держит артефакты в оперативной памяти; удобно для тестов.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string][]byte{}}
}

func (s *MemoryStore) Length(_ context.Context, name string) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[name]
	if !ok {
		return 0, notFound(name)
	}
	return int64(len(b)), nil
}

func (s *MemoryStore) AppendAt(_ context.Context, name string, offset int64, data []byte) (int64, error) {
	if err := ValidateName(name); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.blobs[name]
	if int64(len(b)) != offset {
		return 0, conflict(offset, int64(len(b)))
	}
	s.blobs[name] = append(b, data...)
	return int64(len(s.blobs[name])), nil
}

func (s *MemoryStore) ReadRange(_ context.Context, name string, start, end int64) (io.ReadCloser, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[name]
	if !ok {
		return nil, notFound(name)
	}
	if start < 0 || end >= int64(len(b)) || start > end {
		return nil, &transferproto.RangeNotSatisfiableError{Size: int64(len(b))}
	}
	out := make([]byte, end-start+1)
	copy(out, b[start:end+1])
	return io.NopCloser(bytes.NewReader(out)), nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, name)
	return nil
}
