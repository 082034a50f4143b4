package product

import (
	"context"

	"storecheckout/internal/domain"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByKey(ctx context.Context, key string) (*domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)

	// Catalog provider view used by checkout.
	AvailableQuantity(ctx context.Context, itemID string) (domain.StockLevel, error)
	IsPurchasable(ctx context.Context, itemID string) (bool, error)
	ManagedStockID(ctx context.Context, itemID string) (string, error)
}

// stockLevelOf derives the sellable quantity for p. Products that do not
// track stock or accept backorders are unlimited.
func stockLevelOf(p domain.Product) domain.StockLevel {
	if !p.ManageStock || p.BackordersAllowed {
		return domain.StockLevel{Unlimited: true}
	}
	qty := p.StockQuantity
	if qty < 0 {
		qty = 0
	}
	return domain.StockLevel{Quantity: qty}
}
