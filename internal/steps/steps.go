// Package steps contains the checkout steps that pipelines are assembled from.
package steps

import (
	"net/url"
	"strings"

	"checkout/internal/domain"
)

// Settings are the store-level values steps need when talking to the
// processor or building links back to the storefront.
type Settings struct {
	StoreName          string
	SiteURL            string
	ReturnURL          string // Where the processor sends the browser after a challenge
	ConfirmationURL    string // Order-received page; {order_id} is replaced, otherwise the id is appended
	PaymentMethodTypes []string
}

// Confirmation returns the order-received link for an order.
func (s Settings) Confirmation(orderID string) string {
	id := url.PathEscape(orderID)
	if strings.Contains(s.ConfirmationURL, "{order_id}") {
		return strings.ReplaceAll(s.ConfirmationURL, "{order_id}", id)
	}
	return strings.TrimRight(s.ConfirmationURL, "/") + "/" + id
}

// Return returns the post-challenge link for an order.
func (s Settings) Return(orderID string) string {
	u, err := url.Parse(s.ReturnURL)
	if err != nil || orderID == "" {
		return s.ReturnURL
	}
	q := u.Query()
	q.Set("order_id", orderID)
	u.RawQuery = q.Encode()
	return u.String()
}

// Customer-facing failure messages.
const (
	msgGenericFailure       = "Sorry, we are unable to process your payment at this time. Please retry later."
	msgAuthenticationNeeded = "This payment requires authentication by the customer and could not be completed automatically."
	msgMissingMethod        = "Please select a payment method."
	msgMethodNotReusable    = "The saved payment method cannot be charged without the customer present."
)

func isCheckoutFlow(p *domain.Payment) bool {
	return p.Flow() == domain.FlowStandardCheckout || p.Flow() == domain.FlowEmbeddedThirdPartyCheckout
}

func hasOrder(p *domain.Payment) bool {
	_, ok := p.Order()
	return ok
}

// metaSaveMethod marks an authorization whose method the customer asked to
// keep. It survives an authentication redirect with the authorization.
const metaSaveMethod = "save_payment_method"

// requestMetadata is the collected metadata plus the customer's save choice,
// which is only final once the collect phase has vetted the flags.
func requestMetadata(p *domain.Payment) map[string]string {
	collected := p.Metadata()
	if !p.Has(domain.FlagSaveMethodToStore) {
		return collected
	}
	metadata := make(map[string]string, len(collected)+1)
	for k, v := range collected {
		metadata[k] = v
	}
	metadata[metaSaveMethod] = "true"
	return metadata
}

func storedAuthorizationID(p *domain.Payment) string {
	if order, ok := p.Order(); ok {
		return order.AuthorizationID
	}
	return ""
}

// failureMessage picks the vendor message when there is one.
func failureMessage(a *domain.Authorization) string {
	if a != nil && a.LastError != nil && a.LastError.Message != "" {
		return a.LastError.Message
	}
	return msgGenericFailure
}

func failureReason(a *domain.Authorization) string {
	if a != nil && a.LastError != nil {
		if reason := a.LastError.Reason(); reason != "" {
			return reason
		}
	}
	if a != nil {
		return string(a.Status)
	}
	return "unknown"
}
