package tests

import (
	"time"

	"github.com/shopspring/decimal"

	"checkout/internal/domain"
	"checkout/internal/service"
	"checkout/internal/steps"
)

const (
	testSession      = "sess-1"
	testConfirmation = "https://shop.example/checkout/order-received/{order_id}"
	testReturnURL    = "https://shop.example/v1/checkout/confirm"
)

// harness wires a CheckoutService to fresh mocks.
type harness struct {
	orders    *MockOrderRepository
	tokens    *MockTokenRepository
	sessions  *MockSessionStore
	locks     *MockLockStore
	limiter   *MockRateLimiter
	minimums  *MockMinimumAmountCache
	processor *MockProcessor
	publisher *MockPublisher
	service   *service.CheckoutService
}

func newHarness(opts ...func(*service.CheckoutDeps)) *harness {
	h := &harness{
		orders:    NewMockOrderRepository(),
		tokens:    NewMockTokenRepository(),
		sessions:  NewMockSessionStore(),
		locks:     NewMockLockStore(),
		limiter:   NewMockRateLimiter(3),
		minimums:  NewMockMinimumAmountCache(),
		processor: NewMockProcessor(),
		publisher: NewMockPublisher(),
	}

	deps := service.CheckoutDeps{
		Orders:    h.orders,
		Tokens:    h.tokens,
		Sessions:  h.sessions,
		Locks:     h.locks,
		Limiter:   h.limiter,
		Minimums:  h.minimums,
		Processor: h.processor,
		Publisher: h.publisher,
		Settings: steps.Settings{
			StoreName:       "Test Shop",
			SiteURL:         "https://shop.example",
			ReturnURL:       testReturnURL,
			ConfirmationURL: testConfirmation,
		},
		LockTTL: time.Minute,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	h.service = service.NewCheckoutService(deps)
	return h
}

// addOrder stores a pending order for two units of prod-1 and stocks ten.
func (h *harness) addOrder(id, userID, total, currency string) *domain.Order {
	items := []domain.LineItem{{
		ProductID: "prod-1",
		Name:      "Coffee beans",
		Quantity:  2,
		Total:     decimal.RequireFromString(total),
	}}
	order := &domain.Order{
		ID:         id,
		UserID:     userID,
		CustomerID: "cus_" + id,
		Status:     domain.OrderStatusPending,
		Total:      decimal.RequireFromString(total),
		Currency:   currency,
		Items:      items,
		CartHash:   domain.CartHash(items),
		CreatedAt:  time.Now(),
	}
	h.orders.AddOrder(order)
	h.orders.SetStock("prod-1", 10)
	return order
}

func confirmationFor(orderID string) string {
	return "https://shop.example/checkout/order-received/" + orderID
}
