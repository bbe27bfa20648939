package steps

import (
	"context"

	"checkout/internal/domain"
	"checkout/internal/pipeline"
	"checkout/internal/processor"
)

// CollectOrderData computes the amount, currency, customer and metadata the
// processor requests are built from.
type CollectOrderData struct {
	pipeline.NopPhases
	settings Settings
}

// NewCollectOrderData creates a new CollectOrderData step.
func NewCollectOrderData(settings Settings) *CollectOrderData {
	return &CollectOrderData{settings: settings}
}

func (s *CollectOrderData) Name() string { return "collect_order_data" }

func (s *CollectOrderData) IsApplicable(p *domain.Payment) bool { return true }

func (s *CollectOrderData) CollectData(ctx context.Context, p *domain.Payment) error {
	metadata := map[string]string{
		"flow": string(p.Flow()),
	}
	if s.settings.SiteURL != "" {
		metadata["site_url"] = s.settings.SiteURL
	}

	switch subject := p.Subject().(type) {
	case domain.OrderSubject:
		order := subject.Order
		if order == nil {
			return &domain.InvalidPriceError{Reason: "payment has no order"}
		}
		if order.Total.IsNegative() {
			return &domain.InvalidPriceError{Reason: "order total is negative"}
		}
		if order.Currency == "" {
			return &domain.InvalidPriceError{Reason: "order currency is missing"}
		}

		amount := processor.ToMinorUnits(order.Total, order.Currency)
		if p.Has(domain.FlagChangingSubscriptionMethod) {
			amount = 0
		}

		metadata["order_id"] = order.ID
		metadata["payment_type"] = "single"
		if p.Has(domain.FlagRecurring) {
			metadata["payment_type"] = "recurring"
		}

		p.Put(domain.ScratchAmount, amount)
		p.Put(domain.ScratchCurrency, processor.NormalizeCurrency(order.Currency))
		p.Put(domain.ScratchCustomerID, order.CustomerID)
		p.Put(domain.ScratchReturnURL, s.settings.Return(order.ID))

	case domain.CartSubject:
		if subject.Total.IsNegative() {
			return &domain.InvalidPriceError{Reason: "cart total is negative"}
		}
		if subject.Currency == "" {
			return &domain.InvalidPriceError{Reason: "cart currency is missing"}
		}

		p.Put(domain.ScratchAmount, processor.ToMinorUnits(subject.Total, subject.Currency))
		p.Put(domain.ScratchCurrency, processor.NormalizeCurrency(subject.Currency))
		p.Put(domain.ScratchReturnURL, s.settings.ReturnURL)

	default:
		return &domain.InvalidPriceError{Reason: "payment has no subject"}
	}

	p.Put(domain.ScratchMetadata, metadata)
	if len(s.settings.PaymentMethodTypes) > 0 {
		p.Put(domain.ScratchPaymentMethodTypes, s.settings.PaymentMethodTypes)
	}
	return nil
}

// description is the statement description sent with payment requests.
func description(storeName, orderID string) string {
	if storeName == "" {
		return "Order " + orderID
	}
	return storeName + " - Order " + orderID
}

func paymentMethodTypes(p *domain.Payment) []string {
	types, _ := p.Get(domain.ScratchPaymentMethodTypes)
	v, _ := types.([]string)
	return v
}
