package steps

import (
	"context"
	"errors"
	"log"

	"checkout/internal/domain"
	"checkout/internal/pipeline"
	"checkout/internal/redis"
)

// MinimumAmount rejects amounts below a processor minimum learned earlier
// without calling the processor. Fresh embedded-field authorizations are left
// to CreateAuthorization, which raises them to the minimum instead.
type MinimumAmount struct {
	pipeline.NopPhases
	minimums redis.MinimumAmountCacheInterface
}

// NewMinimumAmount creates a new MinimumAmount step.
func NewMinimumAmount(minimums redis.MinimumAmountCacheInterface) *MinimumAmount {
	return &MinimumAmount{minimums: minimums}
}

func (s *MinimumAmount) Name() string { return "minimum_amount" }

func (s *MinimumAmount) IsApplicable(p *domain.Payment) bool {
	return p.Flow() != domain.FlowPostRedirectConfirmation && !createsAuthorization(p)
}

func (s *MinimumAmount) Action(ctx context.Context, p *domain.Payment) (pipeline.Outcome, error) {
	amount := p.Amount()
	if amount <= 0 {
		return pipeline.Continue(), nil
	}

	minimum, ok, err := s.minimums.Get(ctx, p.Currency())
	if err != nil {
		log.Printf("failed to read minimum amount for %s: %v", p.Currency(), err)
		return pipeline.Continue(), nil
	}
	if ok && amount < minimum {
		return pipeline.Outcome{}, &domain.AmountTooSmallError{Minimum: minimum, Currency: p.Currency()}
	}
	return pipeline.Continue(), nil
}

// rememberMinimum caches a minimum the processor reported.
func rememberMinimum(ctx context.Context, minimums redis.MinimumAmountCacheInterface, err error) {
	var tooSmall *domain.AmountTooSmallError
	if !errors.As(err, &tooSmall) || tooSmall.Minimum <= 0 {
		return
	}
	if cacheErr := minimums.Set(ctx, tooSmall.Currency, tooSmall.Minimum); cacheErr != nil {
		log.Printf("failed to cache minimum amount for %s: %v", tooSmall.Currency, cacheErr)
	}
}
