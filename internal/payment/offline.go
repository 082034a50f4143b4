package payment

import (
	"context"
	"sync/atomic"

	"storecheckout/internal/domain"
)

// Offline is a gateway settled outside the system, such as cash on delivery
// or a posted cheque. It reports a fixed result.
type Offline struct {
	id      string
	result  domain.PaymentStatus
	enabled atomic.Bool
}

func NewOffline(id string, result domain.PaymentStatus, enabled bool) *Offline {
	o := &Offline{id: id, result: result}
	o.enabled.Store(enabled)
	return o
}

// CashOnDelivery completes the order immediately.
func CashOnDelivery() *Offline { return NewOffline("cod", domain.PaymentStatusSuccess, true) }

// Cheque leaves the order waiting for the cheque to clear.
func Cheque() *Offline { return NewOffline("cheque", domain.PaymentStatusPending, true) }

func (o *Offline) ID() string { return o.id }
func (o *Offline) IsEnabled() bool { return o.enabled.Load() }
func (o *Offline) SetEnabled(v bool) { o.enabled.Store(v) }

func (o *Offline) ProcessPayment(ctx context.Context, _ domain.PaymentContext) (domain.PaymentResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.PaymentResult{}, err
	}
	return domain.PaymentResult{Status: o.result}, nil
}
