package domain

type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusFailure PaymentStatus = "failure"
	PaymentStatusError   PaymentStatus = "error"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusSuccess, PaymentStatusPending, PaymentStatusFailure, PaymentStatusError:
		return true
	}
	return false
}

// PaymentResult is what a gateway reports back for one payment attempt.
// ErrorMessage is only set when the gateway marks it safe to show shoppers.
type PaymentResult struct {
	Status       PaymentStatus `json:"status"`
	RedirectURL  string        `json:"redirectUrl,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
}

// PaymentContext is handed to a gateway for a single attempt. It is never persisted.
type PaymentContext struct {
	Order           Order
	PaymentMethodID string
	PaymentData     map[string]string
	// IdempotencyKey is unique per attempt, so a retry of the same order is
	// not answered with the previous attempt's outcome.
	IdempotencyKey string
}
