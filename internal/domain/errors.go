package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIntentAuthenticationMismatch is returned when the authorization id
	// supplied by the browser differs from the one stored on the order.
	ErrIntentAuthenticationMismatch = errors.New("authorization does not belong to this order")

	// ErrRateLimited is returned when the visitor has too many suspicious declines.
	ErrRateLimited = errors.New("payment attempts rate limited")

	// ErrPaymentAlreadyCompleted is returned when a terminal status is set twice.
	ErrPaymentAlreadyCompleted = errors.New("payment already completed")

	// ErrAuthorizationReplaced is returned when a different authorization is
	// attached to a payment that already carries one.
	ErrAuthorizationReplaced = errors.New("payment already has a different authorization")
)

// UserFacing is implemented by errors that carry a customer-facing message.
type UserFacing interface {
	UserMessage() string
}

// AmountTooSmallError is returned when the processor minimum for a currency
// is not met. Minimum is in minor units.
type AmountTooSmallError struct {
	Minimum  int64
	Currency string
}

func (e *AmountTooSmallError) Error() string {
	return fmt.Sprintf("amount below processor minimum %d %s", e.Minimum, e.Currency)
}

func (e *AmountTooSmallError) UserMessage() string {
	return "Sorry, the order total is below the minimum amount that can be processed."
}

// InvalidPriceError signals a misconfigured total or currency.
type InvalidPriceError struct {
	Reason string
}

func (e *InvalidPriceError) Error() string {
	return "invalid price: " + e.Reason
}

func (e *InvalidPriceError) UserMessage() string {
	return "The order total could not be determined. Please contact the store."
}

// PaymentFailureError is a processor-confirmed failure. Message is shown to
// the customer verbatim when present.
type PaymentFailureError struct {
	Code    string
	Message string
}

func (e *PaymentFailureError) Error() string {
	if e.Code == "" {
		return "payment failed: " + e.Message
	}
	return fmt.Sprintf("payment failed (%s): %s", e.Code, e.Message)
}

func (e *PaymentFailureError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return "Sorry, we are unable to process your payment at this time. Please retry later."
}

// UserMessage returns the customer-facing text for a domain error, and false
// for errors whose details must not reach the browser.
func UserMessage(err error) (string, bool) {
	var uf UserFacing
	if errors.As(err, &uf) {
		return uf.UserMessage(), true
	}

	switch {
	case errors.Is(err, ErrIntentAuthenticationMismatch):
		return "We were not able to verify this payment. Please try again.", true
	case errors.Is(err, ErrRateLimited):
		return "Your payment was not processed. Please wait a few minutes before trying again.", true
	}
	return "", false
}
