package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"checkout/internal/domain"
	"checkout/internal/events"
	"checkout/internal/processor"
	"checkout/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK ORDER REPOSITORY
// ──────────────────────────────────────────────

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	stock  map[string]int

	// Counters for verification
	CreateCallCount               int32
	DeleteCallCount               int32
	AttachAuthorizationCallCount  int32
	UpdatePaymentDetailsCallCount int32
	MarkPaidCallCount             int32
	MarkOnHoldCallCount           int32
	MarkFailedCallCount           int32
	ReduceStockCallCount          int32

	// Error injection
	CreateError               error
	DeleteError               error
	AttachAuthorizationError  error
	UpdatePaymentDetailsError error
	MarkPaidError             error
	MarkFailedError           error
	ReduceStockError          error
}

// NewMockOrderRepository creates a new mock order repository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]*domain.Order),
		stock:  make(map[string]int),
	}
}

// AddOrder adds an order to the mock repository.
func (m *MockOrderRepository) AddOrder(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
}

// SetStock sets the stock level of a product.
func (m *MockOrderRepository) SetStock(productID string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productID] = qty
}

// Stock returns the stock level of a product (for test assertions).
func (m *MockOrderRepository) Stock(productID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stock[productID]
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *order
	m.orders[order.ID] = &copy
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *order
	return &copy, nil
}

func (m *MockOrderRepository) Delete(ctx context.Context, id string) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *MockOrderRepository) AttachAuthorization(ctx context.Context, orderID, authorizationID string) error {
	atomic.AddInt32(&m.AttachAuthorizationCallCount, 1)
	if m.AttachAuthorizationError != nil {
		return m.AttachAuthorizationError
	}
	return m.update(orderID, func(o *domain.Order) {
		o.AuthorizationID = authorizationID
	})
}

func (m *MockOrderRepository) UpdatePaymentDetails(ctx context.Context, orderID string, details domain.PaymentDetails) error {
	atomic.AddInt32(&m.UpdatePaymentDetailsCallCount, 1)
	if m.UpdatePaymentDetailsError != nil {
		return m.UpdatePaymentDetailsError
	}
	return m.update(orderID, func(o *domain.Order) {
		o.AuthorizationID = details.AuthorizationID
		if details.ChargeID != "" {
			o.ChargeID = details.ChargeID
		}
		if details.PaymentMethodID != "" {
			o.PaymentMethodID = details.PaymentMethodID
		}
		if details.PaymentMethodTitle != "" {
			o.PaymentMethodTitle = details.PaymentMethodTitle
		}
		if details.PaymentTokenID != "" {
			o.PaymentTokenID = details.PaymentTokenID
		}
	})
}

func (m *MockOrderRepository) MarkPaid(ctx context.Context, orderID string) (bool, error) {
	atomic.AddInt32(&m.MarkPaidCallCount, 1)
	if m.MarkPaidError != nil {
		return false, m.MarkPaidError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if order.Status.IsPaid() {
		return false, nil
	}
	order.Status = domain.OrderStatusProcessing
	return true, nil
}

func (m *MockOrderRepository) MarkOnHold(ctx context.Context, orderID string) (bool, error) {
	atomic.AddInt32(&m.MarkOnHoldCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if order.Status != domain.OrderStatusPending {
		return false, nil
	}
	order.Status = domain.OrderStatusOnHold
	return true, nil
}

func (m *MockOrderRepository) MarkFailed(ctx context.Context, orderID, reason string) error {
	atomic.AddInt32(&m.MarkFailedCallCount, 1)
	if m.MarkFailedError != nil {
		return m.MarkFailedError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	if order.Status.IsPaid() {
		return nil
	}
	order.Status = domain.OrderStatusFailed
	order.FailureReason = reason
	return nil
}

func (m *MockOrderRepository) AddNote(ctx context.Context, orderID, note string) error {
	return m.update(orderID, func(o *domain.Order) {
		o.Notes = append(o.Notes, note)
	})
}

func (m *MockOrderRepository) ReduceStock(ctx context.Context, orderID string) (bool, error) {
	atomic.AddInt32(&m.ReduceStockCallCount, 1)
	if m.ReduceStockError != nil {
		return false, m.ReduceStockError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if order.StockReduced {
		return false, nil
	}
	order.StockReduced = true
	for _, item := range order.Items {
		m.stock[item.ProductID] -= item.Quantity
	}
	return true, nil
}

func (m *MockOrderRepository) update(orderID string, fn func(o *domain.Order)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	fn(order)
	return nil
}

// GetOrder returns the stored order (for test assertions).
func (m *MockOrderRepository) GetOrder(id string) *domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orders[id]
}

// CountOrders returns the number of orders.
func (m *MockOrderRepository) CountOrders() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

// ──────────────────────────────────────────────
// MOCK TOKEN REPOSITORY
// ──────────────────────────────────────────────

// MockTokenRepository is a mock implementation of TokenRepository.
type MockTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]*domain.PaymentToken

	// Counters
	AddCallCount int32

	// Error injection
	AddError error
}

// NewMockTokenRepository creates a new mock token repository.
func NewMockTokenRepository() *MockTokenRepository {
	return &MockTokenRepository{
		tokens: make(map[string]*domain.PaymentToken),
	}
}

// AddToken adds a token to the mock repository.
func (m *MockTokenRepository) AddToken(token *domain.PaymentToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.ID] = token
}

func (m *MockTokenRepository) Add(ctx context.Context, userID string, method domain.NewPaymentMethod) (*domain.PaymentToken, error) {
	atomic.AddInt32(&m.AddCallCount, 1)
	if m.AddError != nil {
		return nil, m.AddError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.UserID == userID && t.MethodID == method.ID {
			copy := *t
			return &copy, nil
		}
	}
	token := &domain.PaymentToken{
		ID:        fmt.Sprintf("tok-%d", len(m.tokens)+1),
		UserID:    userID,
		MethodID:  method.ID,
		Title:     method.Title,
		Reusable:  method.Reusable,
		CreatedAt: time.Now(),
	}
	m.tokens[token.ID] = token
	copy := *token
	return &copy, nil
}

func (m *MockTokenRepository) GetByID(ctx context.Context, id string) (*domain.PaymentToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.tokens[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *token
	return &copy, nil
}

// CountTokens returns the number of tokens.
func (m *MockTokenRepository) CountTokens() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}

// ──────────────────────────────────────────────
// MOCK SESSION STORE
// ──────────────────────────────────────────────

// MockSessionStore is a mock implementation of SessionStore.
type MockSessionStore struct {
	mu     sync.RWMutex
	values map[string]string

	// Counters
	SetCallCount    int32
	DeleteCallCount int32

	// Error injection
	GetError error
	SetError error
}

// NewMockSessionStore creates a new mock session store.
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		values: make(map[string]string),
	}
}

func (m *MockSessionStore) Get(ctx context.Context, sessionID, key string) (string, error) {
	if m.GetError != nil {
		return "", m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[sessionID+"|"+key], nil
}

func (m *MockSessionStore) Set(ctx context.Context, sessionID, key, value string) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[sessionID+"|"+key] = value
	return nil
}

func (m *MockSessionStore) Delete(ctx context.Context, sessionID, key string) error {
	atomic.AddInt32(&m.DeleteCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, sessionID+"|"+key)
	return nil
}

// Value returns a stored value (for test assertions).
func (m *MockSessionStore) Value(sessionID, key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[sessionID+"|"+key]
}

// ──────────────────────────────────────────────
// MOCK RATE LIMITER
// ──────────────────────────────────────────────

// MockRateLimiter is a mock implementation of RateLimiter.
type MockRateLimiter struct {
	mu        sync.Mutex
	counts    map[string]int
	Threshold int

	// Counters
	IsLimitedCallCount int32
	BumpCallCount      int32

	// Error injection
	IsLimitedError error
	BumpError      error
}

// NewMockRateLimiter creates a new mock rate limiter.
func NewMockRateLimiter(threshold int) *MockRateLimiter {
	return &MockRateLimiter{
		counts:    make(map[string]int),
		Threshold: threshold,
	}
}

func (m *MockRateLimiter) IsLimited(ctx context.Context, visitor string) (bool, error) {
	atomic.AddInt32(&m.IsLimitedCallCount, 1)
	if m.IsLimitedError != nil {
		return false, m.IsLimitedError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[visitor] >= m.Threshold, nil
}

func (m *MockRateLimiter) Bump(ctx context.Context, visitor string) error {
	atomic.AddInt32(&m.BumpCallCount, 1)
	if m.BumpError != nil {
		return m.BumpError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[visitor]++
	return nil
}

// Count returns the bumps recorded for a visitor.
func (m *MockRateLimiter) Count(visitor string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[visitor]
}

// ──────────────────────────────────────────────
// MOCK MINIMUM AMOUNT CACHE
// ──────────────────────────────────────────────

// MockMinimumAmountCache is a mock implementation of MinimumAmountCache.
type MockMinimumAmountCache struct {
	mu       sync.RWMutex
	minimums map[string]int64

	// Counters
	SetCallCount int32

	// Error injection
	GetError error
}

// NewMockMinimumAmountCache creates a new mock minimum cache.
func NewMockMinimumAmountCache() *MockMinimumAmountCache {
	return &MockMinimumAmountCache{
		minimums: make(map[string]int64),
	}
}

func (m *MockMinimumAmountCache) Get(ctx context.Context, currency string) (int64, bool, error) {
	if m.GetError != nil {
		return 0, false, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	minimum, ok := m.minimums[currency]
	return minimum, ok, nil
}

func (m *MockMinimumAmountCache) Set(ctx context.Context, currency string, minimum int64) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minimums[currency] = minimum
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireCheckoutLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseCheckoutLock(ctx context.Context, key string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

// IsLocked checks if a key is locked (for test assertions).
func (m *MockLockStore) IsLocked(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks[key]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK PROCESSOR
// ──────────────────────────────────────────────

// MockProcessor is a mock implementation of processor.Client. Confirmed
// authorizations get ConfirmStatus; unconfirmed ones stay awaiting a method.
type MockProcessor struct {
	mu             sync.Mutex
	authorizations map[string]*domain.Authorization
	seq            int

	// Control behavior
	ConfirmStatus domain.AuthorizationStatus
	LastError     *domain.AuthorizationError
	RedirectURL   string

	// Counters
	CreateCallCount      int32
	CreateSetupCallCount int32
	UpdateCallCount      int32
	ConfirmCallCount     int32
	GetCallCount         int32
	GetSetupCallCount    int32

	// Recorded requests
	CreateRequests  []processor.CreateParams
	SetupRequests   []processor.SetupParams
	UpdateRequests  []processor.UpdateParams
	ConfirmRequests []processor.ConfirmParams

	// Error injection; CreateErrors are consumed one per Create call.
	CreateErrors []error
	UpdateError  error
	ConfirmError error
	GetError     error
}

// NewMockProcessor creates a new mock processor that approves everything.
func NewMockProcessor() *MockProcessor {
	return &MockProcessor{
		authorizations: make(map[string]*domain.Authorization),
		ConfirmStatus:  domain.AuthorizationSucceeded,
	}
}

// AddAuthorization stores an authorization for later Get calls.
func (m *MockProcessor) AddAuthorization(a *domain.Authorization) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authorizations[a.ID] = a
}

// SetDecline makes confirmations fail with the given decline.
func (m *MockProcessor) SetDecline(code, declineCode, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConfirmStatus = domain.AuthorizationRequiresPaymentMethod
	m.LastError = &domain.AuthorizationError{Code: code, DeclineCode: declineCode, Message: message}
}

func (m *MockProcessor) Create(ctx context.Context, params processor.CreateParams) (*domain.Authorization, error) {
	atomic.AddInt32(&m.CreateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateRequests = append(m.CreateRequests, params)

	if len(m.CreateErrors) > 0 {
		err := m.CreateErrors[0]
		m.CreateErrors = m.CreateErrors[1:]
		if err != nil {
			return nil, err
		}
	}

	m.seq++
	auth := &domain.Authorization{
		ID:                 fmt.Sprintf("pi_%d", m.seq),
		Kind:               domain.AuthorizationKindPayment,
		Status:             domain.AuthorizationRequiresPaymentMethod,
		Amount:             params.Amount,
		Currency:           params.Currency,
		CustomerID:         params.CustomerID,
		PaymentMethodTypes: params.PaymentMethodTypes,
		ClientSecret:       fmt.Sprintf("pi_%d_secret", m.seq),
		Metadata:           params.Metadata,
	}
	if params.Confirm {
		m.confirmLocked(auth, params.PaymentMethodID)
	}
	m.authorizations[auth.ID] = auth
	copy := *auth
	return &copy, nil
}

func (m *MockProcessor) CreateSetup(ctx context.Context, params processor.SetupParams) (*domain.Authorization, error) {
	atomic.AddInt32(&m.CreateSetupCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetupRequests = append(m.SetupRequests, params)

	m.seq++
	auth := &domain.Authorization{
		ID:           fmt.Sprintf("seti_%d", m.seq),
		Kind:         domain.AuthorizationKindSetup,
		Status:       domain.AuthorizationRequiresPaymentMethod,
		CustomerID:   params.CustomerID,
		ClientSecret: fmt.Sprintf("seti_%d_secret", m.seq),
		Metadata:     params.Metadata,
	}
	if params.Confirm {
		m.confirmLocked(auth, params.PaymentMethodID)
	}
	m.authorizations[auth.ID] = auth
	copy := *auth
	return &copy, nil
}

func (m *MockProcessor) Update(ctx context.Context, id string, params processor.UpdateParams) (*domain.Authorization, error) {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateRequests = append(m.UpdateRequests, params)

	if m.UpdateError != nil {
		return nil, m.UpdateError
	}
	auth, ok := m.authorizations[id]
	if !ok {
		return nil, &domain.PaymentFailureError{Code: "resource_missing", Message: "No such payment_intent: " + id}
	}
	auth.Amount = params.Amount
	auth.Currency = params.Currency
	auth.Metadata = params.Metadata
	copy := *auth
	return &copy, nil
}

func (m *MockProcessor) Confirm(ctx context.Context, id string, params processor.ConfirmParams) (*domain.Authorization, error) {
	atomic.AddInt32(&m.ConfirmCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConfirmRequests = append(m.ConfirmRequests, params)

	if m.ConfirmError != nil {
		return nil, m.ConfirmError
	}
	auth, ok := m.authorizations[id]
	if !ok {
		return nil, &domain.PaymentFailureError{Code: "resource_missing", Message: "No such payment_intent: " + id}
	}
	m.confirmLocked(auth, params.PaymentMethodID)
	copy := *auth
	return &copy, nil
}

func (m *MockProcessor) Get(ctx context.Context, id string) (*domain.Authorization, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	return m.get(id)
}

func (m *MockProcessor) GetSetup(ctx context.Context, id string) (*domain.Authorization, error) {
	atomic.AddInt32(&m.GetSetupCallCount, 1)
	return m.get(id)
}

func (m *MockProcessor) get(id string) (*domain.Authorization, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	auth, ok := m.authorizations[id]
	if !ok {
		return nil, &domain.PaymentFailureError{Code: "resource_missing", Message: "No such intent: " + id}
	}
	copy := *auth
	return &copy, nil
}

func (m *MockProcessor) confirmLocked(auth *domain.Authorization, methodID string) {
	auth.PaymentMethodID = methodID
	auth.Status = m.ConfirmStatus
	if m.LastError != nil {
		lastErr := *m.LastError
		auth.LastError = &lastErr
	}
	if auth.Status == domain.AuthorizationRequiresAction {
		auth.NextAction = &domain.NextAction{Type: "redirect_to_url", RedirectURL: m.RedirectURL}
	}
	if auth.IsSuccessful() && auth.Kind == domain.AuthorizationKindPayment {
		auth.ChargeID = "ch_" + auth.ID
	}
}

// ──────────────────────────────────────────────
// MOCK PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher is a mock implementation of events.Publisher.
type MockPublisher struct {
	mu     sync.Mutex
	events []events.PaymentCompleted

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishPaymentCompleted(ctx context.Context, event events.PaymentCompleted) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns the published events.
func (m *MockPublisher) Events() []events.PaymentCompleted {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]events.PaymentCompleted, len(m.events))
	copy(result, m.events)
	return result
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
