package gamestore

import (
	"context"
	"sync"

	"github.com/park285/Cheese-chess-server/internal/domain"
)

// MemoryStore keeps records in process. Used for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int
	games  map[int]*domain.GameRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[int]*domain.GameRecord)}
}

func (m *MemoryStore) Create(ctx context.Context, name string) (*domain.GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec := newRecord(m.nextID, name)
	m.games[rec.GameID] = rec.Clone()
	return rec, nil
}

func (m *MemoryStore) Get(ctx context.Context, gameID int) (*domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.games[gameID]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, rec *domain.GameRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[rec.GameID]; !ok {
		return ErrNotFound
	}
	m.games[rec.GameID] = rec.Clone()
	return nil
}

func (m *MemoryStore) Exists(ctx context.Context, gameID int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.games[gameID]
	return ok, nil
}
