package customer

import (
	"context"
	"strings"
	"sync"
	"time"

	"storecheckout/internal/domain"

	"github.com/google/uuid"
)

type Memory struct {
	mu      sync.RWMutex
	byEmail map[string]domain.Customer
}

func NewMemory() *Memory {
	return &Memory{byEmail: make(map[string]domain.Customer)}
}

func (m *Memory) Create(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Email = strings.ToLower(c.Email)
	if _, exists := m.byEmail[c.Email]; exists {
		return nil, domain.ErrAlreadyExists
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m.byEmail[c.Email] = c
	return &c, nil
}

func (m *Memory) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (m *Memory) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.byEmail {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}
