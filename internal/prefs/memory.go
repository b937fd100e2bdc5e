package prefs

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, owner string) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fromValues(s.data[owner]), nil
}

func (s *MemoryStore) Put(ctx context.Context, owner string, p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[owner] = p.values()
	return nil
}
