package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storecheckout/internal/domain"

	"github.com/google/uuid"
)

type Memory struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart // keyed by cart id
}

func NewMemory() *Memory {
	return &Memory{carts: make(map[string]*domain.Cart)}
}

func (m *Memory) Create(_ context.Context, in CreateCartInput) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.carts {
		if c.SessionID == in.SessionID {
			return nil, fmt.Errorf("cart for session %s already exists", in.SessionID)
		}
	}
	cart := &domain.Cart{
		ID:         uuid.NewString(),
		SessionID:  in.SessionID,
		CustomerID: in.CustomerID,
		Currency:   in.Currency,
		CreatedAt:  time.Now().UTC(),
	}
	m.carts[cart.ID] = cart
	out := copyCart(*cart)
	return &out, nil
}

// Put stores cart as-is, replacing any cart with the same id.
func (m *Memory) Put(cart domain.Cart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := copyCart(cart)
	m.carts[cart.ID] = &c
}

func (m *Memory) GetBySession(_ context.Context, sessionID string) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.carts {
		if c.SessionID == sessionID {
			out := copyCart(*c)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) AddLineItem(_ context.Context, cartID string, product domain.Product, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range cart.Lines {
		if cart.Lines[i].ProductID == product.ID {
			l := &cart.Lines[i]
			l.Quantity += quantity
			l.TotalCents = l.UnitPriceCents * int64(l.Quantity)
			recalc(cart)
			return nil
		}
	}
	cart.Lines = append(cart.Lines, domain.CartLine{
		ID:             uuid.NewString(),
		CartID:         cartID,
		ProductID:      product.ID,
		Name:           product.Name,
		Quantity:       quantity,
		UnitPriceCents: product.PriceCents,
		TotalCents:     product.PriceCents * int64(quantity),
		CreatedAt:      time.Now().UTC(),
	})
	recalc(cart)
	return nil
}

func (m *Memory) ChangeLineItemQuantity(ctx context.Context, cartID, lineItemID string, quantity int) error {
	if quantity <= 0 {
		return m.RemoveLineItem(ctx, cartID, lineItemID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range cart.Lines {
		if cart.Lines[i].ID == lineItemID {
			cart.Lines[i].Quantity = quantity
			cart.Lines[i].TotalCents = cart.Lines[i].UnitPriceCents * int64(quantity)
			recalc(cart)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *Memory) RemoveLineItem(_ context.Context, cartID, lineItemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range cart.Lines {
		if cart.Lines[i].ID == lineItemID {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			recalc(cart)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *Memory) SetBillingAddress(_ context.Context, cartID string, addr domain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return domain.ErrNotFound
	}
	cart.BillingAddress = addr
	return nil
}

func (m *Memory) SetShippingAddress(_ context.Context, cartID string, addr domain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[cartID]
	if !ok {
		return domain.ErrNotFound
	}
	cart.ShippingAddress = addr
	return nil
}

func recalc(cart *domain.Cart) {
	var total int64
	for _, l := range cart.Lines {
		total += l.TotalCents
	}
	cart.TotalCents = total
}

func copyCart(c domain.Cart) domain.Cart {
	c.Lines = append([]domain.CartLine(nil), c.Lines...)
	return c
}
