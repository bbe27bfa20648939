package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"checkout/internal/domain"
	"checkout/internal/redis"
)

// Cart is the visitor's cart as kept in the session.
type Cart struct {
	Currency string            `json:"currency"`
	Items    []domain.LineItem `json:"items"`
}

// Total returns the sum of the line totals.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Total)
	}
	return total
}

// SaveCart stores the visitor's cart in the session.
func (s *CheckoutService) SaveCart(ctx context.Context, sessionID string, cart Cart) error {
	if sessionID == "" {
		return ErrInvalidSessionID
	}
	if err := validateCart(cart); err != nil {
		return err
	}

	b, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return s.sessions.Set(ctx, sessionID, redis.SessionCart, string(b))
}

func (s *CheckoutService) loadCart(ctx context.Context, sessionID string) (Cart, error) {
	raw, err := s.sessions.Get(ctx, sessionID, redis.SessionCart)
	if err != nil {
		return Cart{}, err
	}
	if raw == "" {
		return Cart{}, nil
	}

	var cart Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}

// CreateOrderRequest contains the parameters for placing an order.
type CreateOrderRequest struct {
	SessionID  string
	UserID     string
	CustomerID string
	Currency   string
	Items      []domain.LineItem // Taken from the session cart when empty
}

// CreateOrder places a pending order for the cart.
func (s *CheckoutService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	cart := Cart{Currency: req.Currency, Items: req.Items}
	if len(cart.Items) == 0 && req.SessionID != "" {
		stored, err := s.loadCart(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		cart = stored
		if req.Currency != "" {
			cart.Currency = req.Currency
		}
	}
	if err := validateCart(cart); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:         uuid.New().String(),
		UserID:     req.UserID,
		CustomerID: req.CustomerID,
		Status:     domain.OrderStatusPending,
		Total:      cart.Total(),
		Currency:   strings.ToUpper(cart.Currency),
		Items:      cart.Items,
		CartHash:   domain.CartHash(cart.Items),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder retrieves an order by ID.
func (s *CheckoutService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	return s.orders.GetByID(ctx, orderID)
}

// OrderReceived returns the order for the confirmation page and forgets the
// session's in-flight order.
func (s *CheckoutService) OrderReceived(ctx context.Context, orderID, sessionID string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if sessionID != "" {
		if err := s.sessions.Delete(ctx, sessionID, redis.SessionProcessingOrderID); err != nil {
			log.Printf("failed to clear processing order for order %s: %v", order.ID, err)
		}
	}
	return order, nil
}

func validateCart(cart Cart) error {
	if len(cart.Items) == 0 {
		return ErrEmptyCart
	}
	if len(strings.TrimSpace(cart.Currency)) != 3 {
		return ErrInvalidCurrency
	}
	for _, item := range cart.Items {
		if item.ProductID == "" || item.Quantity <= 0 || item.Total.IsNegative() {
			return ErrInvalidLineItem
		}
	}
	return nil
}
