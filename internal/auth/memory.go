package auth

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is a fixed token table, handy for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]string)}
}

// Add registers token for username, replacing any previous owner.
func (m *MemoryStore) Add(token, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[normalize(token)] = strings.TrimSpace(username)
}

func (m *MemoryStore) Remove(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, normalize(token))
}

func (m *MemoryStore) Lookup(_ context.Context, token string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.tokens[normalize(token)]
	if !ok || u == "" {
		return "", false, nil
	}
	return u, true, nil
}
