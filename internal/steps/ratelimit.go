package steps

import (
	"context"
	"log"

	"checkout/internal/domain"
	"checkout/internal/pipeline"
	"checkout/internal/redis"
)

// Decline reasons that count towards the rate limit.
var suspiciousDeclines = map[string]bool{
	"card_declined":    true,
	"generic_decline":  true,
	"incorrect_number": true,
	"incorrect_cvc":    true,
	"fraudulent":       true,
}

// RateLimit refuses to contact the processor for visitors with too many
// suspicious declines, and counts new ones once the run settles.
type RateLimit struct {
	pipeline.NopPhases
	limiter redis.RateLimiterInterface
}

// NewRateLimit creates a new RateLimit step.
func NewRateLimit(limiter redis.RateLimiterInterface) *RateLimit {
	return &RateLimit{limiter: limiter}
}

func (s *RateLimit) Name() string { return "rate_limit" }

func (s *RateLimit) IsApplicable(p *domain.Payment) bool {
	return isCheckoutFlow(p) && !p.Has(domain.FlagMerchantInitiated) && p.Session() != ""
}

func (s *RateLimit) Action(ctx context.Context, p *domain.Payment) (pipeline.Outcome, error) {
	limited, err := s.limiter.IsLimited(ctx, p.Session())
	if err != nil {
		// Fail open.
		log.Printf("failed to check payment rate limit: %v", err)
		return pipeline.Continue(), nil
	}
	if limited {
		return pipeline.Outcome{}, domain.ErrRateLimited
	}
	return pipeline.Continue(), nil
}

func (s *RateLimit) Complete(ctx context.Context, p *domain.Payment) error {
	auth := p.Authorization()
	if auth == nil || auth.LastError == nil {
		return nil
	}
	if !suspiciousDeclines[auth.LastError.Reason()] {
		return nil
	}
	if err := s.limiter.Bump(ctx, p.Session()); err != nil {
		log.Printf("failed to bump payment rate limit: %v", err)
	}
	return nil
}
