package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"checkout/internal/domain"
	"checkout/internal/repository"
)

// OrderRepository is a PostgreSQL implementation of repository.OrderRepository.
type OrderRepository struct {
	db *sql.DB
	q  Querier
}

// NewOrderRepository creates a new PostgreSQL order repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db, q: db}
}

// NewOrderRepositoryWithTx creates an order repository using a transaction.
func NewOrderRepositoryWithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{q: tx}
}

// Ensure OrderRepository implements the repository interface.
var _ repository.OrderRepository = (*OrderRepository)(nil)

// Create persists a new order with its line items.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.withTx(ctx, func(q Querier) error {
		query := `
			INSERT INTO orders (id, user_id, customer_id, status, total, currency, cart_hash)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := q.ExecContext(ctx, query,
			order.ID,
			order.UserID,
			order.CustomerID,
			order.Status,
			order.Total,
			order.Currency,
			order.CartHash,
		); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, item := range order.Items {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO order_items (order_id, product_id, name, quantity, total)
				VALUES ($1, $2, $3, $4, $5)
			`, order.ID, item.ProductID, item.Name, item.Quantity, item.Total); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves an order with its items and notes.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, user_id, customer_id, status, total, currency, cart_hash,
		       authorization_id, charge_id, payment_method_id, payment_token_id,
		       payment_method_title, stock_reduced, failure_reason, created_at, updated_at
		FROM orders WHERE id = $1
	`

	var order domain.Order
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.CustomerID,
		&order.Status,
		&order.Total,
		&order.Currency,
		&order.CartHash,
		&order.AuthorizationID,
		&order.ChargeID,
		&order.PaymentMethodID,
		&order.PaymentTokenID,
		&order.PaymentMethodTitle,
		&order.StockReduced,
		&order.FailureReason,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}

	items, err := r.q.QueryContext(ctx, `
		SELECT product_id, name, quantity, total
		FROM order_items WHERE order_id = $1 ORDER BY product_id
	`, id)
	if err != nil {
		return nil, err
	}
	defer items.Close()

	for items.Next() {
		var item domain.LineItem
		if err := items.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.Total); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	if err := items.Err(); err != nil {
		return nil, err
	}

	notes, err := r.q.QueryContext(ctx, `SELECT note FROM order_notes WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer notes.Close()

	for notes.Next() {
		var note string
		if err := notes.Scan(&note); err != nil {
			return nil, err
		}
		order.Notes = append(order.Notes, note)
	}

	return &order, notes.Err()
}

// Delete removes an order and its dependent rows.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	return r.withTx(ctx, func(q Querier) error {
		if _, err := q.ExecContext(ctx, `DELETE FROM order_notes WHERE order_id = $1`, id); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
			return err
		}

		result, err := q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return requireRows(result)
	})
}

// AttachAuthorization stores the authorization id on the order.
func (r *OrderRepository) AttachAuthorization(ctx context.Context, orderID, authorizationID string) error {
	query := `
		UPDATE orders SET authorization_id = $2, updated_at = NOW()
		WHERE id = $1 AND authorization_id IS DISTINCT FROM $2
	`
	_, err := r.q.ExecContext(ctx, query, orderID, authorizationID)
	return err
}

// UpdatePaymentDetails writes the payment facts; empty values keep the
// stored ones.
func (r *OrderRepository) UpdatePaymentDetails(ctx context.Context, orderID string, d domain.PaymentDetails) error {
	query := `
		UPDATE orders SET
			authorization_id     = COALESCE(NULLIF($2, ''), authorization_id),
			authorization_status = COALESCE(NULLIF($3, ''), authorization_status),
			charge_id            = COALESCE(NULLIF($4, ''), charge_id),
			currency             = COALESCE(NULLIF($5, ''), currency),
			payment_method_id    = COALESCE(NULLIF($6, ''), payment_method_id),
			payment_method_title = COALESCE(NULLIF($7, ''), payment_method_title),
			payment_token_id     = COALESCE(NULLIF($8, ''), payment_token_id),
			updated_at           = NOW()
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query,
		orderID,
		d.AuthorizationID,
		string(d.AuthorizationStatus),
		d.ChargeID,
		d.Currency,
		d.PaymentMethodID,
		d.PaymentMethodTitle,
		d.PaymentTokenID,
	)
	if err != nil {
		return err
	}
	return requireRows(result)
}

// MarkPaid moves the order to PROCESSING unless it is already paid.
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID string) (bool, error) {
	query := `
		UPDATE orders SET status = $2, failure_reason = '', updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($2, $3)
	`
	return r.transition(ctx, orderID, query, orderID, domain.OrderStatusProcessing, domain.OrderStatusCompleted)
}

// MarkOnHold moves a pending or failed order to ON_HOLD.
func (r *OrderRepository) MarkOnHold(ctx context.Context, orderID string) (bool, error) {
	query := `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ($3, $4)
	`
	return r.transition(ctx, orderID, query, orderID, domain.OrderStatusOnHold, domain.OrderStatusPending, domain.OrderStatusFailed)
}

// MarkFailed moves an unpaid order to FAILED.
func (r *OrderRepository) MarkFailed(ctx context.Context, orderID, reason string) error {
	query := `
		UPDATE orders SET status = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($4, $5)
	`
	_, err := r.transition(ctx, orderID, query, orderID, domain.OrderStatusFailed, reason, domain.OrderStatusProcessing, domain.OrderStatusCompleted)
	return err
}

// AddNote appends an order note.
func (r *OrderRepository) AddNote(ctx context.Context, orderID, note string) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO order_notes (order_id, note) VALUES ($1, $2)`, orderID, note)
	return err
}

// ReduceStock decrements product stock once per order.
func (r *OrderRepository) ReduceStock(ctx context.Context, orderID string) (bool, error) {
	reduced := false
	err := r.withTx(ctx, func(q Querier) error {
		result, err := q.ExecContext(ctx, `
			UPDATE orders SET stock_reduced = TRUE, updated_at = NOW()
			WHERE id = $1 AND stock_reduced = FALSE
		`, orderID)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}

		if _, err := q.ExecContext(ctx, `
			UPDATE products SET stock = products.stock - oi.quantity
			FROM order_items oi
			WHERE oi.order_id = $1 AND products.id = oi.product_id
		`, orderID); err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
		reduced = true
		return nil
	})
	return reduced, err
}

// transition runs a guarded status update. No affected rows means either
// the guard rejected it or the order does not exist.
func (r *OrderRepository) transition(ctx context.Context, orderID, query string, args ...any) (bool, error) {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows > 0 {
		return true, nil
	}

	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, repository.ErrNotFound
	}
	return false, nil
}

func (r *OrderRepository) withTx(ctx context.Context, fn func(q Querier) error) error {
	return inTx(ctx, r.db, r.q, fn)
}
