package steps

import (
	"context"
	"errors"
	"fmt"
	"log"

	"checkout/internal/domain"
	"checkout/internal/pipeline"
	"checkout/internal/redis"
	"checkout/internal/repository"
)

// DuplicateGuard stops a second submission of an already paid cart from
// charging the customer again.
type DuplicateGuard struct {
	pipeline.NopPhases
	orders   repository.OrderRepository
	sessions redis.SessionStoreInterface
	settings Settings
}

// NewDuplicateGuard creates a new DuplicateGuard step.
func NewDuplicateGuard(orders repository.OrderRepository, sessions redis.SessionStoreInterface, settings Settings) *DuplicateGuard {
	return &DuplicateGuard{orders: orders, sessions: sessions, settings: settings}
}

func (s *DuplicateGuard) Name() string { return "duplicate_guard" }

func (s *DuplicateGuard) IsApplicable(p *domain.Payment) bool {
	return hasOrder(p) && isCheckoutFlow(p) && !p.Has(domain.FlagMerchantInitiated)
}

func (s *DuplicateGuard) Action(ctx context.Context, p *domain.Payment) (pipeline.Outcome, error) {
	order, _ := p.Order()

	previousID, err := s.sessions.Get(ctx, p.Session(), redis.SessionProcessingOrderID)
	if err != nil {
		return pipeline.Outcome{}, fmt.Errorf("read processing order: %w", err)
	}

	if previousID != "" && previousID != order.ID {
		previous, err := s.orders.GetByID(ctx, previousID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return pipeline.Outcome{}, fmt.Errorf("load processing order %s: %w", previousID, err)
		}

		if previous != nil && previous.CartHash == order.CartHash && previous.Status.IsPaid() {
			if err := s.orders.Delete(ctx, order.ID); err != nil {
				return pipeline.Outcome{}, fmt.Errorf("delete duplicate order %s: %w", order.ID, err)
			}
			if err := s.sessions.Delete(ctx, p.Session(), redis.SessionProcessingOrderID); err != nil {
				log.Printf("failed to clear processing order for session: %v", err)
			}

			return pipeline.Succeeded(domain.Result{
				Redirect:    s.settings.Confirmation(previous.ID),
				AlreadyPaid: true,
			}), nil
		}
	}

	if err := s.sessions.Set(ctx, p.Session(), redis.SessionProcessingOrderID, order.ID); err != nil {
		return pipeline.Outcome{}, fmt.Errorf("record processing order: %w", err)
	}
	return pipeline.Continue(), nil
}

func (s *DuplicateGuard) Complete(ctx context.Context, p *domain.Payment) error {
	if p.Status() != domain.PaymentStatusSuccessful {
		return nil
	}
	order, _ := p.Order()

	current, err := s.sessions.Get(ctx, p.Session(), redis.SessionProcessingOrderID)
	if err != nil {
		log.Printf("failed to read processing order for order %s: %v", order.ID, err)
		return nil
	}
	if current != order.ID {
		return nil
	}
	if err := s.sessions.Delete(ctx, p.Session(), redis.SessionProcessingOrderID); err != nil {
		log.Printf("failed to clear processing order for order %s: %v", order.ID, err)
	}
	return nil
}
