package app

import (
	"github.com/stripe/stripe-go/v74"

	"checkout/internal/config"
	"checkout/internal/processor"
)

// NewProcessorClient creates the Stripe-backed authorization client. An API
// URL override points the client at a local mock server.
func NewProcessorClient(cfg config.StripeConfig) *processor.StripeClient {
	if cfg.APIURL == "" {
		return processor.NewStripeClient(cfg.SecretKey, nil)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(cfg.APIURL),
	})
	return processor.NewStripeClient(cfg.SecretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})
}
