package history

import (
	"context"
	"sync"

	"github.com/suPer8Hu/health-assistant/internal/chat"
)

// MemoryBackend keeps logs in process memory.
type MemoryBackend struct {
	mu   sync.Mutex
	logs map[string][]chat.Conversation
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{logs: make(map[string][]chat.Conversation)}
}

func (b *MemoryBackend) For(owner string) chat.Store {
	return &memoryStore{backend: b, owner: owner}
}

type memoryStore struct {
	backend *MemoryBackend
	owner   string
}

func (s *memoryStore) Save(ctx context.Context, conv chat.Conversation) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.logs[s.owner] = Upsert(s.backend.logs[s.owner], conv)
	return nil
}

func (s *memoryStore) List(ctx context.Context) ([]chat.Conversation, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	return cloneAll(s.backend.logs[s.owner]), nil
}

func (s *memoryStore) Delete(ctx context.Context, id string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.logs[s.owner] = Remove(s.backend.logs[s.owner], id)
	return nil
}

func (s *memoryStore) Load(ctx context.Context, id string) (chat.Conversation, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if c, ok := Find(s.backend.logs[s.owner], id); ok {
		return c, nil
	}
	return chat.Conversation{}, ErrNotFound
}
