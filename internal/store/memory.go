package store

import (
	"context"
	"sync"
)

// MemoryStore keeps blobs in process memory. Contents are lost on exit.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ KV = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
