package steps

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"checkout/internal/domain"
	"checkout/internal/pipeline"
	"checkout/internal/processor"
	"checkout/internal/redis"
	"checkout/internal/repository"
)

// StandardCharge creates and confirms the authorization for a submitted
// order in a single request.
type StandardCharge struct {
	pipeline.NopPhases
	client   processor.Client
	orders   repository.OrderRepository
	minimums redis.MinimumAmountCacheInterface
	settings Settings
}

// NewStandardCharge creates a new StandardCharge step.
func NewStandardCharge(client processor.Client, orders repository.OrderRepository, minimums redis.MinimumAmountCacheInterface, settings Settings) *StandardCharge {
	return &StandardCharge{client: client, orders: orders, minimums: minimums, settings: settings}
}

func (s *StandardCharge) Name() string { return "standard_charge" }

func (s *StandardCharge) IsApplicable(p *domain.Payment) bool {
	return p.Flow() == domain.FlowStandardCheckout && hasOrder(p)
}

func (s *StandardCharge) Action(ctx context.Context, p *domain.Payment) (pipeline.Outcome, error) {
	order, _ := p.Order()

	method := p.Method()
	if method == nil {
		return pipeline.Outcome{}, &domain.PaymentFailureError{Code: "missing_payment_method", Message: msgMissingMethod}
	}

	offSession := p.Has(domain.FlagMerchantInitiated)
	if offSession {
		saved, ok := method.(domain.SavedPaymentMethod)
		if !ok || !saved.Reusable {
			return pipeline.Outcome{}, &domain.PaymentFailureError{Code: "payment_method_not_reusable", Message: msgMethodNotReusable}
		}
	}

	var (
		auth *domain.Authorization
		err  error
	)
	if p.Amount() == 0 {
		auth, err = s.client.CreateSetup(ctx, processor.SetupParams{
			PaymentMethodID:    method.MethodID(),
			CustomerID:         p.GetString(domain.ScratchCustomerID),
			Confirm:            true,
			OffSession:         offSession,
			ReturnURL:          p.GetString(domain.ScratchReturnURL),
			PaymentMethodTypes: paymentMethodTypes(p),
			Metadata:           requestMetadata(p),
		})
	} else {
		params := processor.CreateParams{
			Amount:             p.Amount(),
			Currency:           p.Currency(),
			PaymentMethodID:    method.MethodID(),
			CustomerID:         p.GetString(domain.ScratchCustomerID),
			CaptureMode:        captureMode(p),
			SaveMethod:         p.Has(domain.FlagSaveMethodToPlatform),
			OffSession:         offSession,
			Confirm:            true,
			ReturnURL:          p.GetString(domain.ScratchReturnURL),
			Description:        description(s.settings.StoreName, order.ID),
			PaymentMethodTypes: paymentMethodTypes(p),
			Metadata:           requestMetadata(p),
			MandateParams:      mandateParams(p, order),
		}
		if offSession {
			params.IdempotencyKey = "renewal-" + order.ID
		}
		auth, err = s.client.Create(ctx, params)
	}
	if err != nil {
		rememberMinimum(ctx, s.minimums, err)
		return pipeline.Outcome{}, err
	}

	if err := attach(ctx, s.orders, p, auth); err != nil {
		return pipeline.Outcome{}, err
	}
	return settle(ctx, s.orders, s.settings, p, auth)
}

// settle turns a confirmed authorization into the action outcome.
func settle(ctx context.Context, orders repository.OrderRepository, settings Settings, p *domain.Payment, auth *domain.Authorization) (pipeline.Outcome, error) {
	order, _ := p.Order()
	if auth.ChargeID != "" {
		p.Put(domain.ScratchChargeID, auth.ChargeID)
	}

	switch {
	case auth.IsSuccessful():
		return pipeline.Succeeded(domain.Result{
			Redirect:        settings.Confirmation(order.ID),
			AuthorizationID: auth.ID,
		}), nil

	case auth.RequiresAction() && auth.LastError == nil:
		if p.Has(domain.FlagMerchantInitiated) {
			// Nobody is there to complete a challenge.
			if err := markFailed(ctx, orders, order, "authentication_required"); err != nil {
				return pipeline.Outcome{}, err
			}
			return pipeline.Failed(msgAuthenticationNeeded), nil
		}

		result := domain.Result{
			ClientSecret:    auth.ClientSecret,
			AuthorizationID: auth.ID,
		}
		if auth.NextAction != nil {
			result.Redirect = auth.NextAction.RedirectURL
		}
		return pipeline.Suspended(result), nil

	default:
		if err := markFailed(ctx, orders, order, failureReason(auth)); err != nil {
			return pipeline.Outcome{}, err
		}
		return pipeline.Failed(failureMessage(auth)), nil
	}
}

func markFailed(ctx context.Context, orders repository.OrderRepository, order *domain.Order, reason string) error {
	if err := orders.MarkFailed(ctx, order.ID, reason); err != nil {
		return fmt.Errorf("mark order %s failed: %w", order.ID, err)
	}
	order.Status = domain.OrderStatusFailed
	order.FailureReason = reason
	return nil
}

// mandateParams returns the e-mandate options Indian cards need before they
// can be charged again off-session.
func mandateParams(p *domain.Payment, order *domain.Order) map[string]string {
	if p.Currency() != "inr" {
		return nil
	}
	if !p.Has(domain.FlagSaveMethodToPlatform) && !p.Has(domain.FlagRecurring) {
		return nil
	}

	start := order.CreatedAt
	if start.IsZero() {
		start = time.Now()
	}

	const prefix = "payment_method_options[card][mandate_options]"
	return map[string]string{
		prefix + "[reference]":          order.ID,
		prefix + "[amount]":             strconv.FormatInt(p.Amount(), 10),
		prefix + "[amount_type]":        "maximum",
		prefix + "[interval]":           "sporadic",
		prefix + "[start_date]":         strconv.FormatInt(start.Unix(), 10),
		prefix + "[supported_types][0]": "india",
	}
}
