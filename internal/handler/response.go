package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"checkout/internal/domain"
	"checkout/internal/repository"
	"checkout/internal/service"
)

const (
	resultSuccess = "success"
	resultError   = "error"

	msgInternalError = "An error occurred while processing your request. Please try again."
)

// CheckoutResponse is the HTTP response for checkout operations.
type CheckoutResponse struct {
	Result          string   `json:"result"`
	Redirect        string   `json:"redirect,omitempty"`
	Messages        []string `json:"messages,omitempty"`
	AlreadyPaid     bool     `json:"already_paid,omitempty"`
	ClientSecret    string   `json:"client_secret,omitempty"`
	AuthorizationID string   `json:"authorization_id,omitempty"`
}

// newCheckoutResponse renders a pipeline result. A failed payment is still a
// well-formed answer, reported with result "error".
func newCheckoutResponse(r *domain.Result) CheckoutResponse {
	resp := CheckoutResponse{
		Result:          resultSuccess,
		Redirect:        r.Redirect,
		Messages:        r.Messages,
		AlreadyPaid:     r.AlreadyPaid,
		ClientSecret:    r.ClientSecret,
		AuthorizationID: r.AuthorizationID,
	}
	if r.Status == domain.PaymentStatusFailed {
		resp.Result = resultError
	}
	return resp
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, CheckoutResponse{
		Result:   resultError,
		Messages: []string{errorMessage(err, code)},
	})
}

// respondBadRequest sends a validation error.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, CheckoutResponse{
		Result:   resultError,
		Messages: []string{message},
	})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// errorMessage returns the text shown to the customer. Internal failures
// never leak their details.
func errorMessage(err error, code int) string {
	if msg, ok := domain.UserMessage(err); ok {
		return msg
	}
	if code == http.StatusInternalServerError {
		return msgInternalError
	}
	return err.Error()
}

// mapErrorToHTTPStatus maps service/repository/domain errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	var (
		tooSmall     *domain.AmountTooSmallError
		invalidPrice *domain.InvalidPriceError
		failure      *domain.PaymentFailureError
	)

	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidOrderID),
		errors.Is(err, service.ErrInvalidSessionID),
		errors.Is(err, service.ErrInvalidCurrency),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidLineItem),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrUnsupportedFlow):
		return http.StatusBadRequest

	// Payment errors the customer can act on
	case errors.As(err, &tooSmall),
		errors.As(err, &invalidPrice),
		errors.As(err, &failure),
		errors.Is(err, domain.ErrIntentAuthenticationMismatch):
		return http.StatusBadRequest

	// Too many declines
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests

	// Conflict errors
	case errors.Is(err, service.ErrCheckoutInProgress),
		errors.Is(err, service.ErrNothingToReconcile):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
