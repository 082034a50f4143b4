package domain

import "time"

// Hold reserves stock of one managed item for one order until ExpiresAt.
type Hold struct {
	HolderID  string
	ItemID    string
	Quantity  int
	ExpiresAt time.Time
}

// Active reports whether the hold still counts against available stock.
func (h Hold) Active(now time.Time) bool {
	return h.ExpiresAt.After(now)
}
