package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"checkout/internal/domain"
	"checkout/internal/middleware"
	"checkout/internal/service"
)

// CheckoutHandler handles HTTP requests for checkout payments.
type CheckoutHandler struct {
	checkoutService *service.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutService *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// CheckoutRequest is the HTTP request body for submitting a checkout.
type CheckoutRequest struct {
	OrderID            string `json:"order_id"`
	Flow               string `json:"flow"`
	PaymentMethodID    string `json:"payment_method_id"`
	PaymentMethodTitle string `json:"payment_method_title"`
	Reusable           bool   `json:"reusable"`
	SavedTokenID       string `json:"saved_token_id"`
	SaveMethod         bool   `json:"save_method"`
	AuthorizationID    string `json:"authorization_id"`
}

// IntentRequest is the HTTP request body for preparing the embedded fields.
type IntentRequest struct {
	OrderID         string `json:"order_id"`
	AuthorizationID string `json:"authorization_id"`
	SaveMethod      bool   `json:"save_method"`
	ChangingMethod  bool   `json:"changing_method"`
}

// RenewalRequest is the HTTP request body for charging a renewal order.
type RenewalRequest struct {
	TokenID string `json:"token_id"`
}

// Checkout handles POST /v1/checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.OrderID == "" {
		respondBadRequest(c, "order_id is required")
		return
	}

	if req.PaymentMethodID == "" && req.SavedTokenID == "" {
		respondBadRequest(c, "payment_method_id or saved_token_id is required")
		return
	}

	flow := domain.FlowStandardCheckout
	if req.Flow == string(domain.FlowEmbeddedThirdPartyCheckout) {
		flow = domain.FlowEmbeddedThirdPartyCheckout
	}
	c.Set("order_id", req.OrderID)

	result, err := h.checkoutService.ProcessCheckout(c.Request.Context(), service.CheckoutRequest{
		OrderID:            req.OrderID,
		SessionID:          middleware.SessionID(c),
		Flow:               flow,
		PaymentMethodID:    req.PaymentMethodID,
		PaymentMethodTitle: req.PaymentMethodTitle,
		Reusable:           req.Reusable,
		SavedTokenID:       req.SavedTokenID,
		SaveMethod:         req.SaveMethod,
		AuthorizationID:    req.AuthorizationID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newCheckoutResponse(result))
}

// Confirm handles GET /v1/checkout/confirm, the processor's return URL.
func (h *CheckoutHandler) Confirm(c *gin.Context) {
	orderID := c.Query("order_id")
	authorizationID := c.Query("payment_intent")
	if authorizationID == "" {
		authorizationID = c.Query("setup_intent")
	}
	c.Set("order_id", orderID)

	result, err := h.checkoutService.ConfirmRedirect(c.Request.Context(), service.ConfirmRedirectRequest{
		OrderID:         orderID,
		SessionID:       middleware.SessionID(c),
		AuthorizationID: authorizationID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// The browser arrives here by navigation; send it on.
	if result.Redirect != "" && result.Status != domain.PaymentStatusFailed {
		c.Redirect(http.StatusFound, result.Redirect)
		return
	}
	respondJSON(c, http.StatusOK, newCheckoutResponse(result))
}

// PrepareIntent handles POST /v1/intents
func (h *CheckoutHandler) PrepareIntent(c *gin.Context) {
	var req IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.OrderID != "" {
		c.Set("order_id", req.OrderID)
	}

	result, err := h.checkoutService.PrepareIntent(c.Request.Context(), service.IntentRequest{
		OrderID:         req.OrderID,
		SessionID:       middleware.SessionID(c),
		AuthorizationID: req.AuthorizationID,
		SaveMethod:      req.SaveMethod,
		ChangingMethod:  req.ChangingMethod,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newCheckoutResponse(result))
}

// ChargeRenewal handles POST /v1/internal/orders/:id/renewal
func (h *CheckoutHandler) ChargeRenewal(c *gin.Context) {
	var req RenewalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.TokenID == "" {
		respondBadRequest(c, "token_id is required")
		return
	}

	orderID := c.Param("id")
	c.Set("order_id", orderID)

	result, err := h.checkoutService.ChargeRenewal(c.Request.Context(), service.RenewalRequest{
		OrderID: orderID,
		TokenID: req.TokenID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newCheckoutResponse(result))
}
