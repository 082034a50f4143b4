package order

import (
	"context"

	"storecheckout/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	// Update overwrites every mutable field of the stored order.
	Update(ctx context.Context, order domain.Order) (*domain.Order, error)
}
