package cart

import (
	"context"

	"storecheckout/internal/domain"
)

type CreateCartInput struct {
	SessionID  string
	CustomerID *string
	Currency   string
}

// Repository stores one cart per shopper session.
type Repository interface {
	Create(ctx context.Context, in CreateCartInput) (*domain.Cart, error)
	GetBySession(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddLineItem(ctx context.Context, cartID string, product domain.Product, quantity int) error
	// ChangeLineItemQuantity removes the line when quantity is not positive.
	ChangeLineItemQuantity(ctx context.Context, cartID, lineItemID string, quantity int) error
	RemoveLineItem(ctx context.Context, cartID, lineItemID string) error
	SetBillingAddress(ctx context.Context, cartID string, addr domain.Address) error
	SetShippingAddress(ctx context.Context, cartID string, addr domain.Address) error
}
