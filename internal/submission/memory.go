package submission

import (
	"context"
	"sync"
)

// MemoryRepository keeps confirmations in process memory.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []Confirmation
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Record(_ context.Context, c Confirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.ID == c.ID {
			return nil
		}
	}

	c.Addons = append([]string{}, c.Addons...)
	m.entries = append(m.entries, c)
	return nil
}

func (m *MemoryRepository) ListBySession(_ context.Context, sessionID string) ([]Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Confirmation{}
	for _, c := range m.entries {
		if c.SessionID == sessionID {
			out = append(out, c)
		}
	}
	return out, nil
}
