package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Stripe   StripeConfig   `envPrefix:"STRIPE_"`
	Checkout CheckoutConfig `envPrefix:"CHECKOUT_"`
	Kafka    KafkaConfig    `envPrefix:"KAFKA_"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	SecureCookie bool          `env:"SERVER_SECURE_COOKIE" envDefault:"false"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName   string `env:"DB_NAME" envDefault:"checkout"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string `env:"NEW_RELIC_APP_NAME" envDefault:"checkout-service"`
	LicenseKey string `env:"NEW_RELIC_LICENSE_KEY"`
	Enabled    bool   `env:"NEW_RELIC_ENABLED" envDefault:"false"`
}

// StripeConfig holds payment processor configuration.
type StripeConfig struct {
	SecretKey string `env:"SECRET_KEY"`
	APIURL    string `env:"API_URL"` // Overrides the API endpoint, e.g. for stripe-mock
}

// CheckoutConfig holds store and checkout behaviour settings.
type CheckoutConfig struct {
	StoreName          string        `env:"STORE_NAME" envDefault:"Checkout"`
	SiteURL            string        `env:"SITE_URL" envDefault:"http://localhost:8080"`
	ReturnURL          string        `env:"RETURN_URL" envDefault:"http://localhost:8080/v1/checkout/confirm"`
	ConfirmationURL    string        `env:"CONFIRMATION_URL" envDefault:"http://localhost:8080/v1/orders/{order_id}/received"`
	PaymentMethodTypes []string      `env:"PAYMENT_METHOD_TYPES" envDefault:"card" envSeparator:","`
	ManualCapture      bool          `env:"MANUAL_CAPTURE" envDefault:"false"`
	RateLimitThreshold int64         `env:"RATE_LIMIT_THRESHOLD" envDefault:"5"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"10m"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"48h"`
	LockTTL            time.Duration `env:"LOCK_TTL" envDefault:"30s"`
	MinimumAmountTTL   time.Duration `env:"MINIMUM_AMOUNT_TTL" envDefault:"24h"`
	IdempotencyTTL     time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	OperatorToken      string        `env:"OPERATOR_TOKEN"` // Bearer token for back-office routes; empty disables them
}

// KafkaConfig holds event publishing configuration.
type KafkaConfig struct {
	Enabled bool     `env:"ENABLED" envDefault:"false"`
	Brokers []string `env:"BROKERS" envDefault:"localhost:9092" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"checkout.events"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
