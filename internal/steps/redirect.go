package steps

import (
	"context"
	"fmt"

	"checkout/internal/domain"
	"checkout/internal/pipeline"
	"checkout/internal/processor"
	"checkout/internal/repository"
)

// RedirectReconciler settles an order from the processor's authoritative
// state once the browser returns from an authentication challenge.
type RedirectReconciler struct {
	pipeline.NopPhases
	client   processor.Client
	orders   repository.OrderRepository
	settings Settings
}

// NewRedirectReconciler creates a new RedirectReconciler step.
func NewRedirectReconciler(client processor.Client, orders repository.OrderRepository, settings Settings) *RedirectReconciler {
	return &RedirectReconciler{client: client, orders: orders, settings: settings}
}

func (s *RedirectReconciler) Name() string { return "redirect_reconciler" }

func (s *RedirectReconciler) IsApplicable(p *domain.Payment) bool {
	order, ok := p.Order()
	return ok && p.Flow() == domain.FlowPostRedirectConfirmation && !order.Status.IsSettled()
}

func (s *RedirectReconciler) Action(ctx context.Context, p *domain.Payment) (pipeline.Outcome, error) {
	order, _ := p.Order()

	// Never load an authorization the order does not own.
	requested := p.GetString(domain.ScratchRequestedAuthorization)
	if requested == "" || requested != order.AuthorizationID {
		return pipeline.Outcome{}, domain.ErrIntentAuthenticationMismatch
	}

	var (
		auth *domain.Authorization
		err  error
	)
	if p.Amount() == 0 {
		auth, err = s.client.GetSetup(ctx, requested)
	} else {
		auth, err = s.client.Get(ctx, requested)
	}
	if err != nil {
		return pipeline.Outcome{}, fmt.Errorf("load authorization %s: %w", requested, err)
	}

	if err := p.AttachAuthorization(auth); err != nil {
		return pipeline.Outcome{}, err
	}
	if auth.ChargeID != "" {
		p.Put(domain.ScratchChargeID, auth.ChargeID)
	}
	if p.Method() == nil && auth.PaymentMethodID != "" {
		keep := auth.Metadata[metaSaveMethod] == "true" && !order.IsGuest() && order.PaymentTokenID == ""
		p.SetMethod(domain.NewPaymentMethod{
			ID:       auth.PaymentMethodID,
			Title:    order.PaymentMethodTitle,
			Reusable: keep,
		})
		if keep {
			// Saved by PaymentMethod once the payment succeeds.
			p.Set(domain.FlagSaveMethodToStore)
		}
	}

	switch {
	case auth.IsSuccessful():
		return pipeline.Succeeded(domain.Result{
			Redirect:        s.settings.Confirmation(order.ID),
			AuthorizationID: auth.ID,
		}), nil

	case auth.LastError != nil:
		if err := markFailed(ctx, s.orders, order, failureReason(auth)); err != nil {
			return pipeline.Outcome{}, err
		}
		return pipeline.Outcome{}, &domain.PaymentFailureError{
			Code:    auth.LastError.Reason(),
			Message: auth.LastError.Message,
		}

	case auth.RequiresAction():
		result := domain.Result{
			ClientSecret:    auth.ClientSecret,
			AuthorizationID: auth.ID,
		}
		if auth.NextAction != nil {
			result.Redirect = auth.NextAction.RedirectURL
		}
		return pipeline.Suspended(result), nil

	case auth.Status == domain.AuthorizationRequiresPaymentMethod, auth.Status == domain.AuthorizationCanceled:
		if err := markFailed(ctx, s.orders, order, string(auth.Status)); err != nil {
			return pipeline.Outcome{}, err
		}
		return pipeline.Outcome{}, &domain.PaymentFailureError{Code: string(auth.Status)}
	}

	return pipeline.Succeeded(domain.Result{
		Redirect:        s.settings.Confirmation(order.ID),
		AuthorizationID: auth.ID,
	}), nil
}
