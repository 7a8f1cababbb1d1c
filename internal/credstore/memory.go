package credstore

import (
	"context"
	"sync"

	"gridee/internal/models"
)

// MemoryStore holds the session in process memory. Used as a test
// double and as the zero-config default for ephemeral runs.
type MemoryStore struct {
	mu  sync.Mutex
	rec *record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := recordFromSession(session)
	m.rec = &rec
	return nil
}

func (m *MemoryStore) Load(ctx context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return nil, nil
	}
	return m.rec.session(), nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}
