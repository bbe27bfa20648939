package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"checkout/internal/domain"
	"checkout/internal/repository"
)

// TokenRepository implements repository.TokenRepository using PostgreSQL.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

var _ repository.TokenRepository = (*TokenRepository)(nil)

// Add stores the method for the user, returning the existing token when the
// method was saved before.
func (r *TokenRepository) Add(ctx context.Context, userID string, method domain.NewPaymentMethod) (*domain.PaymentToken, error) {
	query := `
		INSERT INTO payment_tokens (id, user_id, method_id, title, reusable)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, method_id) DO UPDATE SET title = EXCLUDED.title
		RETURNING id, user_id, method_id, title, reusable, created_at
	`

	var token domain.PaymentToken
	err := r.db.QueryRowContext(ctx, query, uuid.New().String(), userID, method.ID, method.Title, method.Reusable).Scan(
		&token.ID,
		&token.UserID,
		&token.MethodID,
		&token.Title,
		&token.Reusable,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// GetByID retrieves a token by ID.
func (r *TokenRepository) GetByID(ctx context.Context, id string) (*domain.PaymentToken, error) {
	query := `SELECT id, user_id, method_id, title, reusable, created_at FROM payment_tokens WHERE id = $1`

	var token domain.PaymentToken
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&token.ID,
		&token.UserID,
		&token.MethodID,
		&token.Title,
		&token.Reusable,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &token, nil
}
