package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storecheckout/internal/domain"
)

type Memory struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewMemory() *Memory {
	return &Memory{orders: make(map[string]domain.Order)}
}

func (m *Memory) Create(_ context.Context, o domain.Order) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[o.ID]; exists {
		return nil, fmt.Errorf("order %s already exists", o.ID)
	}
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	m.orders[o.ID] = clone(o)
	return &o, nil
}

func (m *Memory) Get(_ context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o = clone(o)
	return &o, nil
}

func (m *Memory) Update(_ context.Context, o domain.Order) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.orders[o.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.SessionID = existing.SessionID
	o.CreatedAt = existing.CreatedAt
	o.UpdatedAt = time.Now().UTC()
	m.orders[o.ID] = clone(o)
	return &o, nil
}

func clone(o domain.Order) domain.Order {
	o.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return o
}
