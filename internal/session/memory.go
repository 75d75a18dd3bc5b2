package session

import (
	"context"
	"sync"
)

// MemoryStore keeps the session for the life of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	session *Session
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &s
	return nil
}

func (m *MemoryStore) Load(context.Context) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Session{}, ErrNoSession
	}
	return *m.session, nil
}

func (m *MemoryStore) Token(ctx context.Context) (string, error) {
	return tokenFrom(ctx, m)
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
