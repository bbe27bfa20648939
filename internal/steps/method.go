package steps

import (
	"context"
	"log"

	"checkout/internal/domain"
	"checkout/internal/pipeline"
	"checkout/internal/repository"
)

// PaymentMethod vets the save flags against the selected method before any
// request is made, and stores a newly entered method once the payment
// succeeds.
type PaymentMethod struct {
	pipeline.NopPhases
	tokens repository.TokenRepository
}

// NewPaymentMethod creates a new PaymentMethod step.
func NewPaymentMethod(tokens repository.TokenRepository) *PaymentMethod {
	return &PaymentMethod{tokens: tokens}
}

func (s *PaymentMethod) Name() string { return "payment_method" }

func (s *PaymentMethod) IsApplicable(p *domain.Payment) bool {
	return p.Method() != nil
}

func (s *PaymentMethod) CollectData(ctx context.Context, p *domain.Payment) error {
	if p.Has(domain.FlagRecurring) || p.Has(domain.FlagChangingSubscriptionMethod) {
		p.Set(domain.FlagSaveMethodToPlatform)
	}

	switch m := p.Method().(type) {
	case domain.NewPaymentMethod:
		if !m.Reusable {
			p.Unset(domain.FlagSaveMethodToStore)
			p.Unset(domain.FlagSaveMethodToPlatform)
		}
	case domain.SavedPaymentMethod:
		// Already in the store.
		p.Unset(domain.FlagSaveMethodToStore)
		p.Put(domain.ScratchTokenID, m.TokenID)
	}

	if order, ok := p.Order(); !ok || order.IsGuest() {
		p.Unset(domain.FlagSaveMethodToStore)
	}
	return nil
}

func (s *PaymentMethod) Complete(ctx context.Context, p *domain.Payment) error {
	if p.Status() != domain.PaymentStatusSuccessful || p.Authorization() == nil {
		return nil
	}
	if !p.Has(domain.FlagSaveMethodToStore) {
		return nil
	}
	method, ok := p.Method().(domain.NewPaymentMethod)
	if !ok {
		return nil
	}
	order, ok := p.Order()
	if !ok || order.IsGuest() {
		return nil
	}

	// The charge already went through; a failed save must not fail it.
	token, err := s.tokens.Add(ctx, order.UserID, method)
	if err != nil {
		log.Printf("failed to save payment method for order %s: %v", order.ID, err)
		return nil
	}

	p.Put(domain.ScratchTokenID, token.ID)
	p.SetMethod(token.SavedMethod())
	return nil
}
