// Package session remembers which draft order belongs to a shopper session.
package session

import "context"

type Store interface {
	// DraftOrderID returns "" when the session has no draft order.
	DraftOrderID(ctx context.Context, sessionID string) (string, error)
	SetDraftOrderID(ctx context.Context, sessionID, orderID string) error
	Clear(ctx context.Context, sessionID string) error
}
