package product

import (
	"context"
	"sync"

	"storecheckout/internal/domain"

	"github.com/google/uuid"
)

// Memory is an in-process catalog, used by tests and local runs.
type Memory struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

func NewMemory(products ...domain.Product) *Memory {
	m := &Memory{products: make(map[string]domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

// SetStock overwrites the on-hand quantity of a product.
func (m *Memory) SetStock(id string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		p.StockQuantity = qty
		m.products[id] = p
	}
}

func (m *Memory) GetByID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) GetByKey(_ context.Context, key string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.products {
		if p.Key == key {
			p := p
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) Upsert(_ context.Context, product domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.products {
		if p.Key == product.Key {
			product.ID = id
			product.CreatedAt = p.CreatedAt
		}
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	m.products[product.ID] = product
	return &product, nil
}

func (m *Memory) AvailableQuantity(ctx context.Context, itemID string) (domain.StockLevel, error) {
	p, err := m.GetByID(ctx, itemID)
	if err != nil {
		return domain.StockLevel{}, err
	}
	return stockLevelOf(*p), nil
}

func (m *Memory) IsPurchasable(ctx context.Context, itemID string) (bool, error) {
	p, err := m.GetByID(ctx, itemID)
	if err != nil {
		return false, nil
	}
	return p.Purchasable, nil
}

func (m *Memory) ManagedStockID(ctx context.Context, itemID string) (string, error) {
	p, err := m.GetByID(ctx, itemID)
	if err != nil {
		return "", err
	}
	return p.ManagedStockID(), nil
}
