package session

import (
	"context"
	"sync"
)

type Memory struct {
	mu     sync.RWMutex
	drafts map[string]string
}

func NewMemory() *Memory {
	return &Memory{drafts: make(map[string]string)}
}

func (m *Memory) DraftOrderID(_ context.Context, sessionID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drafts[sessionID], nil
}

func (m *Memory) SetDraftOrderID(_ context.Context, sessionID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[sessionID] = orderID
	return nil
}

func (m *Memory) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, sessionID)
	return nil
}
