// Package stock is the ledger of provisional stock holds placed by pending
// orders. Expired holds are invisible to every read and write path whether or
// not they have been swept.
package stock

import (
	"context"
	"time"
)

// HoldRequest asks for Quantity units of ItemID on behalf of HolderID.
// Available is the on-hand count reported by the catalog for ItemID. The
// Postgres ledger rereads it from the products row under the item lock.
type HoldRequest struct {
	HolderID  string
	ItemID    string
	Quantity  int
	Available int
	TTL       time.Duration
}

type Ledger interface {
	// ReservedQuantity sums active holds on itemID, skipping excludeHolderID when set.
	ReservedQuantity(ctx context.Context, itemID, excludeHolderID string) (int, error)
	// UpsertHold writes or replaces the holder's hold on the item if
	// Available minus holds of every other holder covers Quantity, else it
	// returns domain.ErrInsufficientStock. Check and write are one atomic step.
	UpsertHold(ctx context.Context, req HoldRequest) error
	// DeleteHolds removes every hold of holderID. Deleting nothing is not an error.
	DeleteHolds(ctx context.Context, holderID string) error
	// SweepExpired physically removes expired holds and reports how many went.
	SweepExpired(ctx context.Context) (int, error)
}

func validate(req HoldRequest) error {
	if req.Quantity <= 0 {
		return errInvalidQuantity(req.Quantity)
	}
	return nil
}
