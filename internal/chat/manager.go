package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/suPer8Hu/health-assistant/internal/common"
)

// StoreFactory returns the history log of a profile.
type StoreFactory func(owner string) Store

type managedSession struct {
	owner   string
	session *Session
}

// Manager keeps the live sessions of all profiles in memory.
type Manager struct {
	gateway Gateway
	stores  StoreFactory
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]managedSession
}

func NewManager(gw Gateway, stores StoreFactory, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		gateway:  gw,
		stores:   stores,
		logger:   logger,
		sessions: make(map[string]managedSession),
	}
}

// History returns the history log of owner.
func (m *Manager) History(owner string) Store {
	return m.stores(owner)
}

func (m *Manager) Create(owner, language string) (*Session, error) {
	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	s := NewSession(id, m.gateway, m.stores(owner),
		WithLanguage(language),
		WithLogger(m.logger.With(zap.String("owner", owner))),
	)

	m.mu.Lock()
	m.sessions[id] = managedSession{owner: owner, session: s}
	m.mu.Unlock()
	return s, nil
}

// Resume opens a stored conversation as a live session. A conversation that
// is already live for owner is returned as is.
func (m *Manager) Resume(ctx context.Context, owner, conversationID, language string) (*Session, error) {
	m.mu.Lock()
	if ms, ok := m.sessions[conversationID]; ok && ms.owner == owner {
		m.mu.Unlock()
		return ms.session, nil
	}
	m.mu.Unlock()

	store := m.stores(owner)
	conv, err := store.Load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	s := ResumeSession(conv, m.gateway, store,
		WithLanguage(language),
		WithLogger(m.logger.With(zap.String("owner", owner))),
	)

	m.mu.Lock()
	defer m.mu.Unlock()
	if ms, ok := m.sessions[conversationID]; ok && ms.owner == owner {
		return ms.session, nil
	}
	m.sessions[conversationID] = managedSession{owner: owner, session: s}
	return s, nil
}

// Get hides sessions of other owners behind ErrSessionNotFound.
func (m *Manager) Get(owner, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.sessions[id]
	if !ok || ms.owner != owner {
		return nil, ErrSessionNotFound
	}
	return ms.session, nil
}

// Close drops the live session. Its history entry, if any, is kept.
func (m *Manager) Close(owner, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.sessions[id]
	if !ok || ms.owner != owner {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// PruneIdle drops idle sessions not touched since before cutoff.
func (m *Manager) PruneIdle(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, ms := range m.sessions {
		if ms.session.State() == TurnIdle && ms.session.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	if n > 0 {
		m.logger.Debug("pruned idle chat sessions", zap.Int("count", n))
	}
	return n
}
