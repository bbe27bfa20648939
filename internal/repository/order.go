package repository

import (
	"context"

	"checkout/internal/domain"
)

// OrderRepository defines the persistence operations for purchase orders.
type OrderRepository interface {
	// Create persists a new order with its line items.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by ID.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// Delete removes an order that was superseded by a duplicate submission.
	Delete(ctx context.Context, id string) error

	// AttachAuthorization stores the authorization id on the order.
	// Storing the same id again is a no-op.
	AttachAuthorization(ctx context.Context, orderID, authorizationID string) error

	// UpdatePaymentDetails writes the durable payment facts onto the order.
	UpdatePaymentDetails(ctx context.Context, orderID string, details domain.PaymentDetails) error

	// MarkPaid moves the order to PROCESSING. It returns false when the order
	// was already paid.
	MarkPaid(ctx context.Context, orderID string) (bool, error)

	// MarkOnHold moves a pending order to ON_HOLD. It returns false when the
	// order was not pending.
	MarkOnHold(ctx context.Context, orderID string) (bool, error)

	// MarkFailed moves an unpaid order to FAILED with the given reason.
	MarkFailed(ctx context.Context, orderID, reason string) error

	// AddNote appends an order note.
	AddNote(ctx context.Context, orderID, note string) error

	// ReduceStock decrements product stock for the order's items. It returns
	// false when stock was already reduced for this order.
	ReduceStock(ctx context.Context, orderID string) (bool, error)
}
