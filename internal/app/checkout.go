package app

import (
	"database/sql"

	"github.com/redis/go-redis/v9"

	"checkout/internal/config"
	"checkout/internal/events"
	internalRedis "checkout/internal/redis"
	"checkout/internal/repository/postgres"
	"checkout/internal/service"
	"checkout/internal/steps"
)

// NewCheckoutService wires the checkout service on top of Postgres, Redis,
// the Stripe client and the event publisher.
func NewCheckoutService(db *sql.DB, redisClient *redis.Client, publisher events.Publisher, cfg *config.Config) *service.CheckoutService {
	return service.NewCheckoutService(service.CheckoutDeps{
		Orders:    postgres.NewOrderRepository(db),
		Tokens:    postgres.NewTokenRepository(db),
		Sessions:  internalRedis.NewSessionStore(redisClient, cfg.Checkout.SessionTTL),
		Locks:     internalRedis.NewLockStore(redisClient),
		Limiter:   internalRedis.NewRateLimiter(redisClient, cfg.Checkout.RateLimitThreshold, cfg.Checkout.RateLimitWindow),
		Minimums:  internalRedis.NewMinimumAmountCache(redisClient, cfg.Checkout.MinimumAmountTTL),
		Processor: NewProcessorClient(cfg.Stripe),
		Publisher: publisher,
		Settings: steps.Settings{
			StoreName:          cfg.Checkout.StoreName,
			SiteURL:            cfg.Checkout.SiteURL,
			ReturnURL:          cfg.Checkout.ReturnURL,
			ConfirmationURL:    cfg.Checkout.ConfirmationURL,
			PaymentMethodTypes: cfg.Checkout.PaymentMethodTypes,
		},
		ManualCapture: cfg.Checkout.ManualCapture,
		LockTTL:       cfg.Checkout.LockTTL,
	})
}

// NewPublisher returns the Kafka publisher when enabled, and a no-op
// publisher otherwise. The returned close function is never nil.
func NewPublisher(cfg config.KafkaConfig) (events.Publisher, func() error, error) {
	if !cfg.Enabled {
		return events.NopPublisher{}, func() error { return nil }, nil
	}

	producer, err := NewKafkaProducer(cfg)
	if err != nil {
		return nil, nil, err
	}
	return events.NewKafkaPublisher(producer, cfg.Topic), producer.Close, nil
}
