package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	"checkout/internal/domain"
)

// StripeClient implements Client on top of the Stripe API.
type StripeClient struct {
	api *client.API
}

// NewStripeClient creates a client. A nil backends value uses the default
// Stripe endpoints.
func NewStripeClient(secretKey string, backends *stripe.Backends) *StripeClient {
	return &StripeClient{api: client.New(secretKey, backends)}
}

// Ensure StripeClient implements Client.
var _ Client = (*StripeClient)(nil)

// Create creates a payment intent, confirming it when requested.
func (c *StripeClient) Create(ctx context.Context, p CreateParams) (*domain.Authorization, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(NormalizeCurrency(p.Currency)),
	}
	params.Context = ctx

	if p.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(p.PaymentMethodID)
	}
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	}
	if p.CaptureMode == CaptureManual {
		params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	}
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	if len(p.PaymentMethodTypes) > 0 {
		params.PaymentMethodTypes = stripe.StringSlice(p.PaymentMethodTypes)
	}
	if p.Confirm {
		params.Confirm = stripe.Bool(true)
		if p.OffSession {
			params.OffSession = stripe.Bool(true)
		} else if p.ReturnURL != "" {
			params.ReturnURL = stripe.String(p.ReturnURL)
		}
	}
	if p.SaveMethod && !p.OffSession {
		params.SetupFutureUsage = stripe.String(string(stripe.PaymentIntentSetupFutureUsageOffSession))
	}
	if p.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(p.IdempotencyKey)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	for k, v := range p.MandateParams {
		params.AddExtra(k, v)
	}
	params.AddExpand("latest_charge")

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return c.declinedPayment(err, p.Currency)
	}
	return fromPaymentIntent(pi), nil
}

// CreateSetup creates a setup intent for verifying or saving a method.
func (c *StripeClient) CreateSetup(ctx context.Context, p SetupParams) (*domain.Authorization, error) {
	params := &stripe.SetupIntentParams{
		Usage: stripe.String(string(stripe.SetupIntentUsageOffSession)),
	}
	params.Context = ctx

	if p.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(p.PaymentMethodID)
	}
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	}
	if len(p.PaymentMethodTypes) > 0 {
		params.PaymentMethodTypes = stripe.StringSlice(p.PaymentMethodTypes)
	}
	if p.Confirm {
		params.Confirm = stripe.Bool(true)
		if p.ReturnURL != "" && !p.OffSession {
			params.ReturnURL = stripe.String(p.ReturnURL)
		}
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	si, err := c.api.SetupIntents.New(params)
	if err != nil {
		return c.declinedSetup(err)
	}
	return fromSetupIntent(si), nil
}

// Update changes the amount and details of an unconfirmed payment intent.
func (c *StripeClient) Update(ctx context.Context, id string, p UpdateParams) (*domain.Authorization, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(NormalizeCurrency(p.Currency)),
	}
	params.Context = ctx

	if len(p.PaymentMethodTypes) > 0 {
		params.PaymentMethodTypes = stripe.StringSlice(p.PaymentMethodTypes)
	}
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := c.api.PaymentIntents.Update(id, params)
	if err != nil {
		return nil, fmt.Errorf("update payment intent %s: %w", id, translateError(err, p.Currency))
	}
	return fromPaymentIntent(pi), nil
}

// Confirm confirms an existing payment intent.
func (c *StripeClient) Confirm(ctx context.Context, id string, p ConfirmParams) (*domain.Authorization, error) {
	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx

	if p.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(p.PaymentMethodID)
	}
	if p.OffSession {
		params.OffSession = stripe.Bool(true)
	} else if p.ReturnURL != "" {
		params.ReturnURL = stripe.String(p.ReturnURL)
	}
	if p.SaveMethod && !p.OffSession {
		params.SetupFutureUsage = stripe.String(string(stripe.PaymentIntentSetupFutureUsageOffSession))
	}
	params.AddExpand("latest_charge")

	pi, err := c.api.PaymentIntents.Confirm(id, params)
	if err != nil {
		return c.declinedPayment(err, "")
	}
	return fromPaymentIntent(pi), nil
}

// Get loads a payment intent.
func (c *StripeClient) Get(ctx context.Context, id string) (*domain.Authorization, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")

	pi, err := c.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("get payment intent %s: %w", id, translateError(err, ""))
	}
	return fromPaymentIntent(pi), nil
}

// GetSetup loads a setup intent.
func (c *StripeClient) GetSetup(ctx context.Context, id string) (*domain.Authorization, error) {
	params := &stripe.SetupIntentParams{}
	params.Context = ctx

	si, err := c.api.SetupIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("get setup intent %s: %w", id, translateError(err, ""))
	}
	return fromSetupIntent(si), nil
}

// declinedPayment returns the intent attached to a card error so callers can
// settle it like any other outcome; everything else is translated.
func (c *StripeClient) declinedPayment(err error, currency string) (*domain.Authorization, error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard && stripeErr.PaymentIntent != nil {
		auth := fromPaymentIntent(stripeErr.PaymentIntent)
		if auth.LastError == nil {
			auth.LastError = authorizationError(stripeErr)
		}
		return auth, nil
	}
	return nil, translateError(err, currency)
}

func (c *StripeClient) declinedSetup(err error) (*domain.Authorization, error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard && stripeErr.SetupIntent != nil {
		auth := fromSetupIntent(stripeErr.SetupIntent)
		if auth.LastError == nil {
			auth.LastError = authorizationError(stripeErr)
		}
		return auth, nil
	}
	return nil, translateError(err, "")
}

func fromPaymentIntent(pi *stripe.PaymentIntent) *domain.Authorization {
	auth := &domain.Authorization{
		ID:                 pi.ID,
		Kind:               domain.AuthorizationKindPayment,
		Status:             domain.AuthorizationStatus(pi.Status),
		Amount:             pi.Amount,
		Currency:           string(pi.Currency),
		PaymentMethodTypes: pi.PaymentMethodTypes,
		ClientSecret:       pi.ClientSecret,
		Metadata:           pi.Metadata,
		LastError:          authorizationError(pi.LastPaymentError),
	}
	if pi.Customer != nil {
		auth.CustomerID = pi.Customer.ID
	}
	if pi.PaymentMethod != nil {
		auth.PaymentMethodID = pi.PaymentMethod.ID
	}
	if pi.LatestCharge != nil {
		auth.ChargeID = pi.LatestCharge.ID
	}
	if pi.NextAction != nil {
		auth.NextAction = &domain.NextAction{Type: string(pi.NextAction.Type)}
		if pi.NextAction.RedirectToURL != nil {
			auth.NextAction.RedirectURL = pi.NextAction.RedirectToURL.URL
		}
	}
	return auth
}

func fromSetupIntent(si *stripe.SetupIntent) *domain.Authorization {
	auth := &domain.Authorization{
		ID:                 si.ID,
		Kind:               domain.AuthorizationKindSetup,
		Status:             domain.AuthorizationStatus(si.Status),
		PaymentMethodTypes: si.PaymentMethodTypes,
		ClientSecret:       si.ClientSecret,
		Metadata:           si.Metadata,
		LastError:          authorizationError(si.LastSetupError),
	}
	if si.Customer != nil {
		auth.CustomerID = si.Customer.ID
	}
	if si.PaymentMethod != nil {
		auth.PaymentMethodID = si.PaymentMethod.ID
	}
	if si.NextAction != nil {
		auth.NextAction = &domain.NextAction{Type: string(si.NextAction.Type)}
		if si.NextAction.RedirectToURL != nil {
			auth.NextAction.RedirectURL = si.NextAction.RedirectToURL.URL
		}
	}
	return auth
}
