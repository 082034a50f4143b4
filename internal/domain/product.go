package domain

import "time"

// Product is a catalog item together with its inventory settings.
type Product struct {
	ID                string    `json:"id"`
	Key               string    `json:"key"`
	SKU               string    `json:"sku"`
	Name              string    `json:"name"`
	PriceCents        int64     `json:"priceCents"`
	Currency          string    `json:"currency"`
	Purchasable       bool      `json:"purchasable"`
	ManageStock       bool      `json:"manageStock"`
	BackordersAllowed bool      `json:"backordersAllowed"`
	StockQuantity     int       `json:"stockQuantity"`
	ManagedBy         string    `json:"managedBy,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// StockLevel is an on-hand quantity; Unlimited is set for items whose stock
// is not tracked or which accept backorders.
type StockLevel struct {
	Quantity  int
	Unlimited bool
}

// Covers reports whether qty units can be sold ignoring reservations.
func (s StockLevel) Covers(qty int) bool {
	return s.Unlimited || s.Quantity >= qty
}

// ManagedStockID returns the id under which this product's stock is counted.
func (p Product) ManagedStockID() string {
	if p.ManagedBy != "" {
		return p.ManagedBy
	}
	return p.ID
}
