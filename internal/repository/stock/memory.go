package stock

import (
	"context"
	"sync"

	"storecheckout/internal/clock"
	"storecheckout/internal/domain"
)

type holdKey struct {
	holder string
	item   string
}

// Memory is a single-process ledger. One mutex makes every UpsertHold atomic.
type Memory struct {
	mu    sync.Mutex
	clock clock.Clock
	holds map[holdKey]domain.Hold
}

func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Memory{clock: clk, holds: make(map[holdKey]domain.Hold)}
}

func (m *Memory) ReservedQuantity(_ context.Context, itemID, excludeHolderID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reservedLocked(itemID, excludeHolderID), nil
}

func (m *Memory) UpsertHold(_ context.Context, req HoldRequest) error {
	if err := validate(req); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.Available-m.reservedLocked(req.ItemID, req.HolderID) < req.Quantity {
		return domain.ErrInsufficientStock
	}
	m.holds[holdKey{holder: req.HolderID, item: req.ItemID}] = domain.Hold{
		HolderID:  req.HolderID,
		ItemID:    req.ItemID,
		Quantity:  req.Quantity,
		ExpiresAt: m.clock.Now().Add(req.TTL),
	}
	return nil
}

func (m *Memory) DeleteHolds(_ context.Context, holderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.holds {
		if k.holder == holderID {
			delete(m.holds, k)
		}
	}
	return nil
}

func (m *Memory) SweepExpired(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	removed := 0
	for k, h := range m.holds {
		if !h.Active(now) {
			delete(m.holds, k)
			removed++
		}
	}
	return removed, nil
}

// Holds returns the stored holds of holderID, expired ones included.
func (m *Memory) Holds(holderID string) []domain.Hold {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Hold
	for k, h := range m.holds {
		if k.holder == holderID {
			out = append(out, h)
		}
	}
	return out
}

func (m *Memory) reservedLocked(itemID, excludeHolderID string) int {
	now := m.clock.Now()
	total := 0
	for k, h := range m.holds {
		if k.item != itemID || (excludeHolderID != "" && k.holder == excludeHolderID) {
			continue
		}
		if h.Active(now) {
			total += h.Quantity
		}
	}
	return total
}
