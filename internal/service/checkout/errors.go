package checkout

import (
	"errors"

	"storecheckout/internal/domain"
)

const genericPaymentMessage = "There was a problem processing your payment. Please try again or choose another payment method."

func errMissingPaymentMethod() *domain.CheckoutError {
	return &domain.CheckoutError{
		Kind:    domain.KindMissingPaymentMethod,
		Code:    "missing_payment_method",
		Message: "No payment method provided.",
	}
}

func errPaymentMethodUnavailable(id string) *domain.CheckoutError {
	return &domain.CheckoutError{
		Kind:    domain.KindPaymentMethodUnavailable,
		Code:    "payment_method_disabled",
		Message: "This payment gateway is not available.",
		ItemID:  id,
	}
}

func errPaymentProcessing(message string, cause error) *domain.CheckoutError {
	if message == "" {
		message = genericPaymentMessage
	}
	return &domain.CheckoutError{
		Kind:    domain.KindPaymentProcessing,
		Code:    "process_payment_error",
		Message: message,
		Err:     cause,
	}
}

func errInvalidPaymentResult(cause error) *domain.CheckoutError {
	e := domain.NewSystemError(cause)
	e.Code = "invalid_payment_result"
	return e
}

func errAccountRegistration(cause error) error {
	e := &domain.CheckoutError{Kind: domain.KindAccountRegistration, Err: cause}
	switch {
	case errors.Is(cause, domain.ErrInvalidEmail):
		e.Code = "registration-error-invalid-email"
		e.Message = "Please provide a valid email address."
	case errors.Is(cause, domain.ErrAlreadyExists):
		e.Code = "registration-error-email-exists"
		e.Message = "An account is already registered with your email address. Please log in."
	case errors.Is(cause, domain.ErrWeakPassword):
		e.Code = "registration-error-invalid-password"
		e.Message = "Please choose a password with at least 8 characters, including upper and lower case letters and a number."
	default:
		return cause
	}
	return e
}
