package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"checkout/internal/domain"
	"checkout/internal/events"
	"checkout/internal/pipeline"
	"checkout/internal/processor"
	"checkout/internal/redis"
	"checkout/internal/repository"
	"checkout/internal/steps"
)

const defaultCheckoutLockTTL = 30 * time.Second

// CheckoutDeps are the collaborators of CheckoutService.
type CheckoutDeps struct {
	Orders    repository.OrderRepository
	Tokens    repository.TokenRepository
	Sessions  redis.SessionStoreInterface
	Locks     redis.LockStoreInterface
	Limiter   redis.RateLimiterInterface
	Minimums  redis.MinimumAmountCacheInterface
	Processor processor.Client
	Publisher events.Publisher
	Settings  steps.Settings

	ManualCapture bool
	LockTTL       time.Duration
}

// CheckoutService runs payment pipelines for each checkout entry point.
type CheckoutService struct {
	orders        repository.OrderRepository
	tokens        repository.TokenRepository
	sessions      redis.SessionStoreInterface
	locks         redis.LockStoreInterface
	settings      steps.Settings
	manualCapture bool
	lockTTL       time.Duration
	pipelines     map[domain.Flow]*pipeline.Pipeline
}

// NewCheckoutService creates a new CheckoutService and assembles one
// pipeline per flow.
func NewCheckoutService(deps CheckoutDeps) *CheckoutService {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.LockTTL <= 0 {
		deps.LockTTL = defaultCheckoutLockTTL
	}

	return &CheckoutService{
		orders:        deps.Orders,
		tokens:        deps.Tokens,
		sessions:      deps.Sessions,
		locks:         deps.Locks,
		settings:      deps.Settings,
		manualCapture: deps.ManualCapture,
		lockTTL:       deps.LockTTL,
		pipelines:     buildPipelines(deps),
	}
}

func buildPipelines(deps CheckoutDeps) map[domain.Flow]*pipeline.Pipeline {
	var (
		collect   = steps.NewCollectOrderData(deps.Settings)
		method    = steps.NewPaymentMethod(deps.Tokens)
		duplicate = steps.NewDuplicateGuard(deps.Orders, deps.Sessions, deps.Settings)
		rateLimit = steps.NewRateLimit(deps.Limiter)
		minimum   = steps.NewMinimumAmount(deps.Minimums)
		update    = steps.NewUpdateAuthorization(deps.Processor, deps.Orders, deps.Sessions, deps.Minimums, deps.Settings)
		finalize  = steps.NewFinalizeOrder(deps.Orders, deps.Sessions, deps.Publisher)
	)

	return map[domain.Flow]*pipeline.Pipeline{
		domain.FlowStandardCheckout: pipeline.New("standard_checkout",
			collect,
			method,
			duplicate,
			rateLimit,
			minimum,
			steps.NewStandardCharge(deps.Processor, deps.Orders, deps.Minimums, deps.Settings),
			finalize,
		),
		domain.FlowEmbeddedFieldUpdate: pipeline.New("embedded_field_update",
			collect,
			method,
			minimum,
			steps.NewCreateAuthorization(deps.Processor, deps.Orders, deps.Sessions, deps.Minimums, deps.Settings),
			update,
			finalize,
		),
		domain.FlowPostRedirectConfirmation: pipeline.New("post_redirect_confirmation",
			collect,
			method,
			steps.NewRedirectReconciler(deps.Processor, deps.Orders, deps.Settings),
			finalize,
		),
		domain.FlowEmbeddedThirdPartyCheckout: pipeline.New("embedded_third_party_checkout",
			collect,
			method,
			duplicate,
			rateLimit,
			minimum,
			update,
			steps.NewConfirmAuthorization(deps.Processor, deps.Orders, deps.Settings),
			finalize,
		),
	}
}

// CheckoutRequest contains the parameters for submitting a checkout.
type CheckoutRequest struct {
	OrderID            string
	SessionID          string
	Flow               domain.Flow // Standard checkout when empty
	PaymentMethodID    string
	PaymentMethodTitle string
	Reusable           bool
	SavedTokenID       string // Charge a saved method instead of a new one
	SaveMethod         bool
	AuthorizationID    string // Authorization the embedded checkout was built on
}

// ProcessCheckout charges an order submitted from the storefront.
func (s *CheckoutService) ProcessCheckout(ctx context.Context, req CheckoutRequest) (*domain.Result, error) {
	if req.OrderID == "" {
		return nil, ErrInvalidOrderID
	}
	if req.SessionID == "" {
		return nil, ErrInvalidSessionID
	}
	if req.Flow == "" {
		req.Flow = domain.FlowStandardCheckout
	}
	if req.Flow != domain.FlowStandardCheckout && req.Flow != domain.FlowEmbeddedThirdPartyCheckout {
		return nil, ErrUnsupportedFlow
	}

	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsPaid() {
		return s.alreadyPaid(order), nil
	}

	// Two submissions of the same cart from one session must not overlap.
	lockKey := req.SessionID + ":" + order.CartHash
	locked, err := s.locks.AcquireCheckoutLock(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire checkout lock: %w", err)
	}
	if !locked {
		return nil, ErrCheckoutInProgress
	}
	defer s.releaseLock(ctx, lockKey)

	p := domain.NewOrderPayment(order, req.Flow, req.SessionID)
	if err := s.applyMethod(ctx, p, order, req.SavedTokenID, domain.NewPaymentMethod{
		ID:       req.PaymentMethodID,
		Title:    req.PaymentMethodTitle,
		Reusable: req.Reusable,
	}); err != nil {
		return nil, err
	}
	if req.SaveMethod {
		p.Set(domain.FlagSaveMethodToStore)
		p.Set(domain.FlagSaveMethodToPlatform)
	}
	if s.manualCapture {
		p.Set(domain.FlagManualCapture)
	}
	if req.AuthorizationID != "" {
		p.Put(domain.ScratchRequestedAuthorization, req.AuthorizationID)
	}

	return s.run(ctx, p)
}

// ConfirmRedirectRequest contains the parameters of a post-challenge return.
type ConfirmRedirectRequest struct {
	OrderID         string
	SessionID       string
	AuthorizationID string
}

// ConfirmRedirect reconciles an order after the customer returns from an
// authentication challenge.
func (s *CheckoutService) ConfirmRedirect(ctx context.Context, req ConfirmRedirectRequest) (*domain.Result, error) {
	if req.OrderID == "" {
		return nil, ErrInvalidOrderID
	}

	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsSettled() {
		return &domain.Result{
			Status:   domain.PaymentStatusSuccessful,
			Redirect: s.settings.Confirmation(order.ID),
		}, nil
	}

	p := domain.NewOrderPayment(order, domain.FlowPostRedirectConfirmation, req.SessionID)
	p.Put(domain.ScratchRequestedAuthorization, req.AuthorizationID)
	return s.run(ctx, p)
}

// Reconcile settles an order from the processor's state without a browser,
// e.g. when the customer never came back from a challenge.
func (s *CheckoutService) Reconcile(ctx context.Context, orderID string) (*domain.Result, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.AuthorizationID == "" {
		return nil, ErrNothingToReconcile
	}

	return s.ConfirmRedirect(ctx, ConfirmRedirectRequest{
		OrderID:         order.ID,
		AuthorizationID: order.AuthorizationID,
	})
}

// RenewalRequest contains the parameters for a merchant-initiated charge.
type RenewalRequest struct {
	OrderID string
	TokenID string
}

// ChargeRenewal charges a saved method for a recurring order without the
// customer present.
func (s *CheckoutService) ChargeRenewal(ctx context.Context, req RenewalRequest) (*domain.Result, error) {
	if req.OrderID == "" {
		return nil, ErrInvalidOrderID
	}
	if req.TokenID == "" {
		return nil, ErrInvalidPaymentMethod
	}

	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsPaid() {
		return s.alreadyPaid(order), nil
	}

	lockKey := "renewal:" + order.ID
	locked, err := s.locks.AcquireCheckoutLock(ctx, lockKey, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire renewal lock: %w", err)
	}
	if !locked {
		return nil, ErrCheckoutInProgress
	}
	defer s.releaseLock(ctx, lockKey)

	p := domain.NewOrderPayment(order, domain.FlowStandardCheckout, "")
	p.Set(domain.FlagMerchantInitiated)
	p.Set(domain.FlagRecurring)
	if s.manualCapture {
		p.Set(domain.FlagManualCapture)
	}
	if err := s.applyMethod(ctx, p, order, req.TokenID, domain.NewPaymentMethod{}); err != nil {
		return nil, err
	}

	return s.run(ctx, p)
}

// IntentRequest contains the parameters for preparing the authorization the
// embedded payment fields are mounted on.
type IntentRequest struct {
	OrderID         string // Empty while the customer is still on the cart
	SessionID       string
	AuthorizationID string // Authorization the fields already use, if any
	SaveMethod      bool
	ChangingMethod  bool // Replacing the method of an existing subscription
}

// PrepareIntent creates or updates the authorization for the embedded fields.
func (s *CheckoutService) PrepareIntent(ctx context.Context, req IntentRequest) (*domain.Result, error) {
	var p *domain.Payment

	if req.OrderID != "" {
		order, err := s.orders.GetByID(ctx, req.OrderID)
		if err != nil {
			return nil, err
		}
		p = domain.NewOrderPayment(order, domain.FlowEmbeddedFieldUpdate, req.SessionID)
	} else {
		if req.SessionID == "" {
			return nil, ErrInvalidSessionID
		}
		cart, err := s.loadCart(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		if len(cart.Items) == 0 {
			return nil, ErrEmptyCart
		}
		p = domain.NewCartPayment(cart.Total(), cart.Currency, domain.FlowEmbeddedFieldUpdate, req.SessionID)
	}

	if req.SaveMethod {
		p.Set(domain.FlagSaveMethodToPlatform)
	}
	if req.ChangingMethod {
		p.Set(domain.FlagChangingSubscriptionMethod)
	}
	if s.manualCapture {
		p.Set(domain.FlagManualCapture)
	}
	if req.AuthorizationID != "" {
		p.Put(domain.ScratchRequestedAuthorization, req.AuthorizationID)
	}

	return s.run(ctx, p)
}

func (s *CheckoutService) run(ctx context.Context, p *domain.Payment) (*domain.Result, error) {
	pl, ok := s.pipelines[p.Flow()]
	if !ok {
		return nil, ErrUnsupportedFlow
	}

	if _, err := pl.Run(ctx, p); err != nil {
		return nil, err
	}

	result, ok := p.Result()
	if !ok {
		return nil, ErrNoResult
	}
	return result, nil
}

// applyMethod sets the payment method: the saved token when one is named,
// otherwise the newly entered method.
func (s *CheckoutService) applyMethod(ctx context.Context, p *domain.Payment, order *domain.Order, tokenID string, method domain.NewPaymentMethod) error {
	if tokenID == "" {
		if method.ID != "" {
			p.SetMethod(method)
		}
		return nil
	}

	token, err := s.tokens.GetByID(ctx, tokenID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidPaymentMethod
	}
	if err != nil {
		return err
	}
	if order.IsGuest() || token.UserID != order.UserID {
		return ErrInvalidPaymentMethod
	}

	p.SetMethod(token.SavedMethod())
	return nil
}

func (s *CheckoutService) alreadyPaid(order *domain.Order) *domain.Result {
	return &domain.Result{
		Status:      domain.PaymentStatusSuccessful,
		Redirect:    s.settings.Confirmation(order.ID),
		AlreadyPaid: true,
	}
}

func (s *CheckoutService) releaseLock(ctx context.Context, key string) {
	if err := s.locks.ReleaseCheckoutLock(ctx, key); err != nil {
		log.Printf("failed to release checkout lock %s: %v", key, err)
	}
}
