package steps

import (
	"context"
	"errors"
	"fmt"
	"log"

	"checkout/internal/domain"
	"checkout/internal/pipeline"
	"checkout/internal/processor"
	"checkout/internal/redis"
	"checkout/internal/repository"
)

// CreateAuthorization creates the authorization the embedded payment fields
// are mounted on, before the customer submits the checkout.
type CreateAuthorization struct {
	pipeline.NopPhases
	client   processor.Client
	orders   repository.OrderRepository
	sessions redis.SessionStoreInterface
	minimums redis.MinimumAmountCacheInterface
	settings Settings
}

// NewCreateAuthorization creates a new CreateAuthorization step.
func NewCreateAuthorization(client processor.Client, orders repository.OrderRepository, sessions redis.SessionStoreInterface, minimums redis.MinimumAmountCacheInterface, settings Settings) *CreateAuthorization {
	return &CreateAuthorization{client: client, orders: orders, sessions: sessions, minimums: minimums, settings: settings}
}

func (s *CreateAuthorization) Name() string { return "create_authorization" }

func (s *CreateAuthorization) IsApplicable(p *domain.Payment) bool {
	return createsAuthorization(p)
}

// createsAuthorization reports whether the embedded fields need a fresh
// authorization rather than an update of one they already use.
func createsAuthorization(p *domain.Payment) bool {
	return p.Flow() == domain.FlowEmbeddedFieldUpdate &&
		storedAuthorizationID(p) == "" &&
		p.GetString(domain.ScratchRequestedAuthorization) == ""
}

func (s *CreateAuthorization) Action(ctx context.Context, p *domain.Payment) (pipeline.Outcome, error) {
	var (
		auth *domain.Authorization
		err  error
	)

	if p.Amount() < 1 {
		auth, err = s.client.CreateSetup(ctx, processor.SetupParams{
			CustomerID:         p.GetString(domain.ScratchCustomerID),
			PaymentMethodTypes: paymentMethodTypes(p),
			Metadata:           p.Metadata(),
		})
	} else {
		params := processor.CreateParams{
			Amount:             p.Amount(),
			Currency:           p.Currency(),
			CustomerID:         p.GetString(domain.ScratchCustomerID),
			CaptureMode:        captureMode(p),
			SaveMethod:         p.Has(domain.FlagSaveMethodToPlatform),
			PaymentMethodTypes: paymentMethodTypes(p),
			Metadata:           p.Metadata(),
		}
		if order, ok := p.Order(); ok {
			params.Description = description(s.settings.StoreName, order.ID)
		}

		// The fields must still render below a known minimum; start at it.
		if minimum, ok, cacheErr := s.minimums.Get(ctx, p.Currency()); cacheErr != nil {
			log.Printf("failed to read minimum amount for %s: %v", p.Currency(), cacheErr)
		} else if ok && params.Amount < minimum {
			params.Amount = minimum
		}

		auth, err = s.client.Create(ctx, params)

		// Retry once at the minimum the processor reported.
		var tooSmall *domain.AmountTooSmallError
		if errors.As(err, &tooSmall) && tooSmall.Minimum > 0 {
			rememberMinimum(ctx, s.minimums, err)
			params.Amount = tooSmall.Minimum
			auth, err = s.client.Create(ctx, params)
		}
	}
	if err != nil {
		return pipeline.Outcome{}, err
	}

	if err := attach(ctx, s.orders, p, auth); err != nil {
		return pipeline.Outcome{}, err
	}

	// Remember which authorization this visitor was given, so a later update
	// can prove ownership before the order stores one.
	if p.Session() != "" {
		if err := s.sessions.Set(ctx, p.Session(), redis.SessionAuthorizationID, auth.ID); err != nil {
			return pipeline.Outcome{}, fmt.Errorf("remember authorization %s: %w", auth.ID, err)
		}
	}

	return pipeline.Succeeded(domain.Result{
		ClientSecret:    auth.ClientSecret,
		AuthorizationID: auth.ID,
	}), nil
}

// UpdateAuthorization resubmits an existing authorization with the final
// amount, currency and metadata.
type UpdateAuthorization struct {
	pipeline.NopPhases
	client   processor.Client
	orders   repository.OrderRepository
	sessions redis.SessionStoreInterface
	minimums redis.MinimumAmountCacheInterface
	settings Settings
}

// NewUpdateAuthorization creates a new UpdateAuthorization step.
func NewUpdateAuthorization(client processor.Client, orders repository.OrderRepository, sessions redis.SessionStoreInterface, minimums redis.MinimumAmountCacheInterface, settings Settings) *UpdateAuthorization {
	return &UpdateAuthorization{client: client, orders: orders, sessions: sessions, minimums: minimums, settings: settings}
}

func (s *UpdateAuthorization) Name() string { return "update_authorization" }

func (s *UpdateAuthorization) IsApplicable(p *domain.Payment) bool {
	switch p.Flow() {
	case domain.FlowEmbeddedFieldUpdate:
		return storedAuthorizationID(p) != "" || p.GetString(domain.ScratchRequestedAuthorization) != ""
	case domain.FlowEmbeddedThirdPartyCheckout:
		return hasOrder(p)
	}
	return false
}

func (s *UpdateAuthorization) Action(ctx context.Context, p *domain.Payment) (pipeline.Outcome, error) {
	id, err := s.authorizationToUpdate(ctx, p)
	if err != nil {
		return pipeline.Outcome{}, err
	}
	if id == "" {
		return pipeline.Outcome{}, &domain.PaymentFailureError{Code: "missing_authorization", Message: msgGenericFailure}
	}

	params := processor.UpdateParams{
		Amount:             p.Amount(),
		Currency:           p.Currency(),
		Metadata:           requestMetadata(p),
		PaymentMethodTypes: paymentMethodTypes(p),
	}
	if order, ok := p.Order(); ok {
		params.Description = description(s.settings.StoreName, order.ID)
	}

	auth, err := s.client.Update(ctx, id, params)
	if err != nil {
		rememberMinimum(ctx, s.minimums, err)
		return pipeline.Outcome{}, err
	}

	if err := attach(ctx, s.orders, p, auth); err != nil {
		return pipeline.Outcome{}, err
	}

	if p.Flow() == domain.FlowEmbeddedThirdPartyCheckout {
		return pipeline.Continue(), nil
	}
	return pipeline.Succeeded(domain.Result{
		ClientSecret:    auth.ClientSecret,
		AuthorizationID: auth.ID,
	}), nil
}

// ConfirmAuthorization confirms the updated authorization of an embedded
// third-party checkout and settles it like a standard charge.
type ConfirmAuthorization struct {
	pipeline.NopPhases
	client   processor.Client
	orders   repository.OrderRepository
	settings Settings
}

// NewConfirmAuthorization creates a new ConfirmAuthorization step.
func NewConfirmAuthorization(client processor.Client, orders repository.OrderRepository, settings Settings) *ConfirmAuthorization {
	return &ConfirmAuthorization{client: client, orders: orders, settings: settings}
}

func (s *ConfirmAuthorization) Name() string { return "confirm_authorization" }

func (s *ConfirmAuthorization) IsApplicable(p *domain.Payment) bool {
	return p.Flow() == domain.FlowEmbeddedThirdPartyCheckout && hasOrder(p)
}

func (s *ConfirmAuthorization) Action(ctx context.Context, p *domain.Payment) (pipeline.Outcome, error) {
	auth := p.Authorization()
	if auth == nil {
		return pipeline.Outcome{}, &domain.PaymentFailureError{Code: "missing_authorization", Message: msgGenericFailure}
	}
	if p.Method() == nil {
		return pipeline.Outcome{}, &domain.PaymentFailureError{Code: "missing_payment_method", Message: msgMissingMethod}
	}

	confirmed, err := s.client.Confirm(ctx, auth.ID, processor.ConfirmParams{
		PaymentMethodID: p.Method().MethodID(),
		ReturnURL:       p.GetString(domain.ScratchReturnURL),
		SaveMethod:      p.Has(domain.FlagSaveMethodToPlatform),
	})
	if err != nil {
		return pipeline.Outcome{}, err
	}

	if err := attach(ctx, s.orders, p, confirmed); err != nil {
		return pipeline.Outcome{}, err
	}
	return settle(ctx, s.orders, s.settings, p, confirmed)
}

// authorizationToUpdate returns the stored id, or the id the browser sent
// when nothing is stored yet. The two must agree when both are present, and
// a sent id without a stored one must be the one this session was given.
func (s *UpdateAuthorization) authorizationToUpdate(ctx context.Context, p *domain.Payment) (string, error) {
	stored := storedAuthorizationID(p)
	requested := p.GetString(domain.ScratchRequestedAuthorization)

	if stored != "" {
		if requested != "" && stored != requested {
			return "", domain.ErrIntentAuthenticationMismatch
		}
		return stored, nil
	}
	if requested == "" {
		return "", nil
	}

	if p.Session() == "" {
		return "", domain.ErrIntentAuthenticationMismatch
	}
	issued, err := s.sessions.Get(ctx, p.Session(), redis.SessionAuthorizationID)
	if err != nil {
		return "", fmt.Errorf("read session authorization: %w", err)
	}
	if issued != requested {
		return "", domain.ErrIntentAuthenticationMismatch
	}
	return requested, nil
}

// attach records the authorization on the payment and on its order.
func attach(ctx context.Context, orders repository.OrderRepository, p *domain.Payment, auth *domain.Authorization) error {
	if err := p.AttachAuthorization(auth); err != nil {
		return err
	}

	order, ok := p.Order()
	if !ok {
		return nil
	}
	if err := orders.AttachAuthorization(ctx, order.ID, auth.ID); err != nil {
		return fmt.Errorf("attach authorization %s to order %s: %w", auth.ID, order.ID, err)
	}
	order.AuthorizationID = auth.ID
	return nil
}

func captureMode(p *domain.Payment) processor.CaptureMode {
	if p.Has(domain.FlagManualCapture) {
		return processor.CaptureManual
	}
	return processor.CaptureAutomatic
}
