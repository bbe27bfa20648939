package steps

import (
	"context"
	"fmt"
	"log"

	"checkout/internal/domain"
	"checkout/internal/events"
	"checkout/internal/pipeline"
	"checkout/internal/redis"
	"checkout/internal/repository"
)

// FinalizeOrder writes the payment outcome onto the order. The paid
// transition and its side effects happen at most once per order.
type FinalizeOrder struct {
	pipeline.NopPhases
	orders    repository.OrderRepository
	sessions  redis.SessionStoreInterface
	publisher events.Publisher
}

// NewFinalizeOrder creates a new FinalizeOrder step.
func NewFinalizeOrder(orders repository.OrderRepository, sessions redis.SessionStoreInterface, publisher events.Publisher) *FinalizeOrder {
	return &FinalizeOrder{orders: orders, sessions: sessions, publisher: publisher}
}

func (s *FinalizeOrder) Name() string { return "finalize_order" }

func (s *FinalizeOrder) IsApplicable(p *domain.Payment) bool {
	return hasOrder(p) && p.Authorization() != nil
}

func (s *FinalizeOrder) Complete(ctx context.Context, p *domain.Payment) error {
	order, _ := p.Order()
	auth := p.Authorization()

	details := domain.PaymentDetails{
		AuthorizationID:     auth.ID,
		AuthorizationStatus: auth.Status,
		ChargeID:            p.GetString(domain.ScratchChargeID),
		Currency:            p.Currency(),
		PaymentTokenID:      p.GetString(domain.ScratchTokenID),
	}
	switch m := p.Method().(type) {
	case domain.NewPaymentMethod:
		details.PaymentMethodID = m.ID
		details.PaymentMethodTitle = m.Title
	case domain.SavedPaymentMethod:
		details.PaymentMethodID = m.ID
		details.PaymentMethodTitle = m.Title
		details.PaymentTokenID = m.TokenID
	default:
		details.PaymentMethodID = auth.PaymentMethodID
	}

	if err := s.orders.UpdatePaymentDetails(ctx, order.ID, details); err != nil {
		return fmt.Errorf("update payment details for order %s: %w", order.ID, err)
	}
	order.AuthorizationID = details.AuthorizationID
	if details.ChargeID != "" {
		order.ChargeID = details.ChargeID
	}

	if p.Status() != domain.PaymentStatusSuccessful {
		return nil
	}

	var (
		transitioned bool
		status       domain.OrderStatus
		err          error
	)
	switch auth.Status {
	case domain.AuthorizationSucceeded:
		transitioned, err = s.orders.MarkPaid(ctx, order.ID)
		status = domain.OrderStatusProcessing
	case domain.AuthorizationProcessing, domain.AuthorizationRequiresCapture:
		transitioned, err = s.orders.MarkOnHold(ctx, order.ID)
		status = domain.OrderStatusOnHold
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("update status of order %s: %w", order.ID, err)
	}
	if !transitioned {
		// Another request already finalized this order.
		return nil
	}
	order.Status = status

	s.afterTransition(ctx, p, order, auth)
	return nil
}

// afterTransition runs the side effects of a fresh paid or on-hold
// transition. Failures are logged; the payment itself already went through.
func (s *FinalizeOrder) afterTransition(ctx context.Context, p *domain.Payment, order *domain.Order, auth *domain.Authorization) {
	note := fmt.Sprintf("Payment authorization %s %s.", auth.ID, auth.Status)
	if order.Status == domain.OrderStatusOnHold {
		note = fmt.Sprintf("Payment authorization %s is %s; awaiting settlement.", auth.ID, auth.Status)
	}
	if err := s.orders.AddNote(ctx, order.ID, note); err != nil {
		log.Printf("failed to add note to order %s: %v", order.ID, err)
	}

	reduced, err := s.orders.ReduceStock(ctx, order.ID)
	if err != nil {
		log.Printf("failed to reduce stock for order %s: %v", order.ID, err)
	}
	if reduced {
		order.StockReduced = true
	}

	if !p.Has(domain.FlagMerchantInitiated) && p.Session() != "" {
		if err := s.sessions.Delete(ctx, p.Session(), redis.SessionCart); err != nil {
			log.Printf("failed to clear cart for order %s: %v", order.ID, err)
		}
	}

	event := events.PaymentCompleted{
		Type:                events.TypePaymentCompleted,
		OrderID:             order.ID,
		OrderStatus:         string(order.Status),
		AuthorizationID:     auth.ID,
		AuthorizationStatus: string(auth.Status),
		ChargeID:            order.ChargeID,
		Amount:              p.Amount(),
		Currency:            p.Currency(),
		Flow:                string(p.Flow()),
	}
	if err := s.publisher.PublishPaymentCompleted(ctx, event); err != nil {
		log.Printf("failed to publish payment event for order %s: %v", order.ID, err)
	}
}
