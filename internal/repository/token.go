package repository

import (
	"context"

	"checkout/internal/domain"
)

// TokenRepository defines the persistence operations for reusable
// payment-method tokens.
type TokenRepository interface {
	// Add stores the method for the user and returns its token. Adding the
	// same method twice returns the existing token.
	Add(ctx context.Context, userID string, method domain.NewPaymentMethod) (*domain.PaymentToken, error)

	// GetByID retrieves a token by ID.
	GetByID(ctx context.Context, id string) (*domain.PaymentToken, error)
}
