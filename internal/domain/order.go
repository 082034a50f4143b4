package domain

import "time"

type OrderStatus string

const (
	OrderStatusDraft          OrderStatus = "draft"
	OrderStatusPendingPayment OrderStatus = "pending-payment"
	OrderStatusFailed         OrderStatus = "failed"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

func (s OrderStatus) String() string {
	return string(s)
}

// Payable reports whether an order in this status may still be sent to a gateway.
func (s OrderStatus) Payable() bool {
	return s == OrderStatusDraft || s == OrderStatusPendingPayment || s == OrderStatusFailed
}

// Order is the immutable snapshot of a cart taken at checkout.
type Order struct {
	ID              string      `json:"id"`
	SessionID       string      `json:"-"`
	Status          OrderStatus `json:"status"`
	CartHash        string      `json:"cartHash"`
	Currency        string      `json:"currency"`
	TotalCents      int64       `json:"totalCents"`
	Lines           []OrderLine `json:"lineItems"`
	PaymentMethodID string      `json:"paymentMethod,omitempty"`
	CustomerID      *string     `json:"customerId,omitempty"`
	CustomerNote    string      `json:"customerNote,omitempty"`
	BillingAddress  Address     `json:"billingAddress"`
	ShippingAddress Address     `json:"shippingAddress"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
	PaidAt          *time.Time  `json:"paidAt,omitempty"`
}

type OrderLine struct {
	ProductID      string `json:"productId"`
	Name           string `json:"name,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	TotalCents     int64  `json:"totalCents"`
}

// NeedsPayment is false for zero-total orders and for orders that left the
// payable statuses.
func (o Order) NeedsPayment() bool {
	return o.Status.Payable() && o.TotalCents > 0
}
