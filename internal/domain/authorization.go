package domain

// AuthorizationKind distinguishes charging from method-verification intents.
type AuthorizationKind string

const (
	AuthorizationKindPayment AuthorizationKind = "PAYMENT"
	AuthorizationKindSetup   AuthorizationKind = "SETUP"
)

// AuthorizationStatus mirrors the processor-side intent status.
type AuthorizationStatus string

const (
	AuthorizationRequiresPaymentMethod AuthorizationStatus = "requires_payment_method"
	AuthorizationRequiresConfirmation  AuthorizationStatus = "requires_confirmation"
	AuthorizationRequiresAction        AuthorizationStatus = "requires_action"
	AuthorizationProcessing            AuthorizationStatus = "processing"
	AuthorizationRequiresCapture       AuthorizationStatus = "requires_capture"
	AuthorizationSucceeded             AuthorizationStatus = "succeeded"
	AuthorizationCanceled              AuthorizationStatus = "canceled"
)

// AuthorizationError is the last error the processor recorded on an intent.
type AuthorizationError struct {
	Code        string
	DeclineCode string
	Message     string
}

// Reason returns the most specific decline reason available.
func (e *AuthorizationError) Reason() string {
	if e.DeclineCode != "" {
		return e.DeclineCode
	}
	return e.Code
}

// NextAction is the customer action the processor is waiting for.
type NextAction struct {
	Type        string
	RedirectURL string
}

// Authorization is a snapshot of a remote payment or setup intent.
type Authorization struct {
	ID                 string
	Kind               AuthorizationKind
	Status             AuthorizationStatus
	Amount             int64 // Minor units; zero for setup intents
	Currency           string
	CustomerID         string
	PaymentMethodID    string
	PaymentMethodTypes []string
	ChargeID           string
	ClientSecret       string
	Metadata           map[string]string
	LastError          *AuthorizationError
	NextAction         *NextAction
}

// RequiresAction reports whether the customer must complete a challenge.
func (a *Authorization) RequiresAction() bool {
	return a.Status == AuthorizationRequiresAction
}

// IsSuccessful reports whether funds were captured, reserved or are settling.
func (a *Authorization) IsSuccessful() bool {
	switch a.Status {
	case AuthorizationSucceeded, AuthorizationProcessing, AuthorizationRequiresCapture:
		return true
	}
	return false
}
