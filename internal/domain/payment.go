package domain

import (
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the terminal state of one payment attempt.
type PaymentStatus string

const (
	PaymentStatusInProgress PaymentStatus = "IN_PROGRESS"
	PaymentStatusSuccessful PaymentStatus = "SUCCESSFUL"
	PaymentStatusFailed     PaymentStatus = "FAILED"
)

// Flow identifies the checkout entry point that created the payment.
type Flow string

const (
	FlowStandardCheckout           Flow = "STANDARD_CHECKOUT"
	FlowEmbeddedFieldUpdate        Flow = "EMBEDDED_FIELD_UPDATE"
	FlowPostRedirectConfirmation   Flow = "POST_REDIRECT_CONFIRMATION"
	FlowEmbeddedThirdPartyCheckout Flow = "EMBEDDED_THIRD_PARTY_CHECKOUT"
)

// Flag is an independent boolean attribute of a payment.
type Flag uint8

const (
	FlagSaveMethodToStore Flag = 1 << iota
	FlagSaveMethodToPlatform
	FlagManualCapture
	FlagMerchantInitiated
	FlagRecurring
	FlagChangingSubscriptionMethod
)

// PaymentMethod is either a freshly entered method or a saved token.
type PaymentMethod interface {
	MethodID() string
	isPaymentMethod()
}

// NewPaymentMethod is a method entered during this checkout.
type NewPaymentMethod struct {
	ID       string
	Title    string
	Reusable bool
}

func (m NewPaymentMethod) MethodID() string { return m.ID }
func (NewPaymentMethod) isPaymentMethod()   {}

// SavedPaymentMethod is a method stored in the reusable-token store.
type SavedPaymentMethod struct {
	ID       string
	TokenID  string
	Title    string
	Reusable bool // Usable for off-session charges
}

func (m SavedPaymentMethod) MethodID() string { return m.ID }
func (SavedPaymentMethod) isPaymentMethod()   {}

// Subject is what a payment pays for: an order, or a cart with no order yet.
type Subject interface {
	isSubject()
}

// OrderSubject pays for an existing purchase order.
type OrderSubject struct {
	Order *Order
}

func (OrderSubject) isSubject() {}

// CartSubject pays for cart contents before an order exists.
type CartSubject struct {
	Total    decimal.Decimal
	Currency string
}

func (CartSubject) isSubject() {}

// Result is what the HTTP layer reports once a pipeline run stops.
type Result struct {
	Status          PaymentStatus
	Redirect        string
	AlreadyPaid     bool
	ClientSecret    string
	AuthorizationID string
	Messages        []string
}

// Scratch keys shared between steps.
const (
	ScratchAmount                 = "amount"
	ScratchCurrency               = "currency"
	ScratchCustomerID             = "customer_id"
	ScratchMetadata               = "metadata"
	ScratchRequestedAuthorization = "requested_authorization_id"
	ScratchChargeID               = "charge_id"
	ScratchTokenID                = "token_id"
	ScratchPaymentMethodTypes     = "payment_method_types"
	ScratchReturnURL              = "return_url"
)

// Payment carries the mutable state of one payment attempt for the
// duration of a single request.
type Payment struct {
	subject       Subject
	flow          Flow
	flags         Flag
	status        PaymentStatus
	method        PaymentMethod
	authorization *Authorization
	session       string
	scratch       map[string]any
	result        *Result
}

// NewOrderPayment creates a payment for an existing order.
func NewOrderPayment(order *Order, flow Flow, session string) *Payment {
	return newPayment(OrderSubject{Order: order}, flow, session)
}

// NewCartPayment creates a payment for cart contents without an order.
func NewCartPayment(total decimal.Decimal, currency string, flow Flow, session string) *Payment {
	return newPayment(CartSubject{Total: total, Currency: currency}, flow, session)
}

func newPayment(subject Subject, flow Flow, session string) *Payment {
	return &Payment{
		subject: subject,
		flow:    flow,
		status:  PaymentStatusInProgress,
		session: session,
		scratch: make(map[string]any),
	}
}

// Subject returns what the payment pays for.
func (p *Payment) Subject() Subject { return p.subject }

// Order returns the owning order, if any.
func (p *Payment) Order() (*Order, bool) {
	if s, ok := p.subject.(OrderSubject); ok && s.Order != nil {
		return s.Order, true
	}
	return nil, false
}

func (p *Payment) Flow() Flow            { return p.flow }
func (p *Payment) Session() string       { return p.session }
func (p *Payment) Has(f Flag) bool       { return p.flags&f != 0 }
func (p *Payment) Set(f Flag)            { p.flags |= f }
func (p *Payment) Unset(f Flag)          { p.flags &^= f }
func (p *Payment) Status() PaymentStatus { return p.status }

// IsCompleted reports whether a terminal status has been set.
func (p *Payment) IsCompleted() bool {
	return p.status != PaymentStatusInProgress
}

// Complete sets the terminal status and attaches the result. The status can
// only leave IN_PROGRESS once.
func (p *Payment) Complete(result Result) error {
	if p.IsCompleted() {
		return ErrPaymentAlreadyCompleted
	}
	if result.Status != PaymentStatusSuccessful && result.Status != PaymentStatusFailed {
		result.Status = PaymentStatusFailed
	}
	p.status = result.Status
	p.result = &result
	return nil
}

// Suspend attaches a result without setting a terminal status, e.g. a
// redirect to an authentication challenge.
func (p *Payment) Suspend(result Result) {
	result.Status = PaymentStatusInProgress
	p.result = &result
}

// Result returns the attached result, if any.
func (p *Payment) Result() (*Result, bool) {
	return p.result, p.result != nil
}

func (p *Payment) Method() PaymentMethod     { return p.method }
func (p *Payment) SetMethod(m PaymentMethod) { p.method = m }

// Authorization returns the attached authorization, or nil.
func (p *Payment) Authorization() *Authorization { return p.authorization }

// AttachAuthorization sets the authorization. Attaching a snapshot with the
// same id refreshes it; a different id is rejected.
func (p *Payment) AttachAuthorization(a *Authorization) error {
	if a == nil {
		return nil
	}
	if p.authorization != nil && p.authorization.ID != a.ID {
		return ErrAuthorizationReplaced
	}
	p.authorization = a
	return nil
}

// Put stores an intermediate value for later steps.
func (p *Payment) Put(key string, value any) {
	p.scratch[key] = value
}

// Get returns an intermediate value.
func (p *Payment) Get(key string) (any, bool) {
	v, ok := p.scratch[key]
	return v, ok
}

// GetString returns a string value, or "" if absent or not a string.
func (p *Payment) GetString(key string) string {
	s, _ := p.scratch[key].(string)
	return s
}

// Amount returns the collected amount in minor units.
func (p *Payment) Amount() int64 {
	v, _ := p.scratch[ScratchAmount].(int64)
	return v
}

// Currency returns the collected lower-case currency code.
func (p *Payment) Currency() string {
	return p.GetString(ScratchCurrency)
}

// Metadata returns the collected processor metadata.
func (p *Payment) Metadata() map[string]string {
	m, _ := p.scratch[ScratchMetadata].(map[string]string)
	return m
}
