package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock is returned by the stock ledger when a hold does not fit.
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	// ErrAlreadyExists indicates a unique field is already taken.
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidEmail  = errors.New("invalid email")
	ErrWeakPassword  = errors.New("weak password")
)

type ErrorKind string

const (
	KindCartValidation           ErrorKind = "cart_validation"
	KindInsufficientStock        ErrorKind = "insufficient_stock"
	KindMissingPaymentMethod     ErrorKind = "missing_payment_method"
	KindPaymentMethodUnavailable ErrorKind = "payment_method_unavailable"
	KindPaymentProcessing        ErrorKind = "payment_processing"
	KindAccountRegistration      ErrorKind = "account_registration"
	KindSystem                   ErrorKind = "system"
)

// CheckoutError is a failure surfaced to the checkout caller. Message is safe
// to show to shoppers; Err keeps the underlying cause for logs.
type CheckoutError struct {
	Kind    ErrorKind
	Code    string
	Message string
	ItemID  string
	Err     error
}

func (e *CheckoutError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.ItemID != "" {
		msg += " (item " + e.ItemID + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// KindOf classifies err; anything that is not a CheckoutError is a system fault.
func KindOf(err error) ErrorKind {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindSystem
}

func NewCartValidationError(code, message, itemID string) *CheckoutError {
	return &CheckoutError{Kind: KindCartValidation, Code: code, Message: message, ItemID: itemID}
}

func NewInsufficientStockError(code, message, itemID string) *CheckoutError {
	return &CheckoutError{Kind: KindInsufficientStock, Code: code, Message: message, ItemID: itemID, Err: ErrInsufficientStock}
}

func NewSystemError(err error) *CheckoutError {
	return &CheckoutError{
		Kind:    KindSystem,
		Code:    "unknown_server_error",
		Message: "Something went wrong while processing your order. Please try again.",
		Err:     err,
	}
}
