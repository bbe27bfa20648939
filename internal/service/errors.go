package service

import "errors"

var (
	// ErrInvalidOrderID is returned when order ID is empty.
	ErrInvalidOrderID = errors.New("invalid order id")

	// ErrInvalidSessionID is returned when a browser flow has no session.
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrInvalidCurrency is returned when the currency code is missing or malformed.
	ErrInvalidCurrency = errors.New("invalid currency")

	// ErrEmptyCart is returned when there is nothing to pay for.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidLineItem is returned when a line item has no product or a non-positive quantity.
	ErrInvalidLineItem = errors.New("invalid line item")

	// ErrInvalidPaymentMethod is returned when a saved method does not belong to the customer.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrUnsupportedFlow is returned when an entry point is called with a flow it does not run.
	ErrUnsupportedFlow = errors.New("unsupported checkout flow")

	// ErrCheckoutInProgress is returned when the same cart is already being paid in this session.
	ErrCheckoutInProgress = errors.New("checkout already in progress")

	// ErrNoResult is returned when a pipeline finished without any step producing a result.
	ErrNoResult = errors.New("checkout produced no result")

	// ErrNothingToReconcile is returned when an order has no authorization to reconcile.
	ErrNothingToReconcile = errors.New("order has no authorization to reconcile")
)
