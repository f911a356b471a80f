package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore хранит сессии в памяти процесса
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Session)}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[userID], nil
}

func (m *MemoryStore) Save(_ context.Context, userID int64, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// Evict удаляет сессии, не обновлявшиеся с cutoff, и возвращает их количество
func (m *MemoryStore) Evict(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
