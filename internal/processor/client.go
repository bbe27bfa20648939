package processor

import (
	"context"

	"checkout/internal/domain"
)

// CaptureMode controls whether funds are captured immediately.
type CaptureMode string

const (
	CaptureAutomatic CaptureMode = "automatic"
	CaptureManual    CaptureMode = "manual"
)

// CreateParams describes a payment authorization request.
type CreateParams struct {
	Amount             int64
	Currency           string
	PaymentMethodID    string
	CustomerID         string
	CaptureMode        CaptureMode
	SaveMethod         bool // Attach the method to the customer for reuse
	OffSession         bool // No customer present (merchant initiated)
	Confirm            bool
	ReturnURL          string
	Description        string
	PaymentMethodTypes []string
	Metadata           map[string]string
	MandateParams      map[string]string
	IdempotencyKey     string
}

// SetupParams describes a setup authorization request.
type SetupParams struct {
	PaymentMethodID    string
	CustomerID         string
	Confirm            bool
	OffSession         bool
	ReturnURL          string
	PaymentMethodTypes []string
	Metadata           map[string]string
}

// UpdateParams describes a change to an unconfirmed payment authorization.
type UpdateParams struct {
	Amount             int64
	Currency           string
	Metadata           map[string]string
	PaymentMethodTypes []string
	Description        string
}

// ConfirmParams describes the confirmation of an existing authorization.
type ConfirmParams struct {
	PaymentMethodID string
	ReturnURL       string
	SaveMethod      bool
	OffSession      bool
}

// Client talks to the remote processor's authorization API. Implementations
// translate vendor errors into domain errors; card declines that leave the
// authorization in place are returned as an authorization with LastError set.
type Client interface {
	Create(ctx context.Context, params CreateParams) (*domain.Authorization, error)
	CreateSetup(ctx context.Context, params SetupParams) (*domain.Authorization, error)
	Update(ctx context.Context, id string, params UpdateParams) (*domain.Authorization, error)
	Confirm(ctx context.Context, id string, params ConfirmParams) (*domain.Authorization, error)
	Get(ctx context.Context, id string) (*domain.Authorization, error)
	GetSetup(ctx context.Context, id string) (*domain.Authorization, error)
}
