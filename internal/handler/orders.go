package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"checkout/internal/domain"
	"checkout/internal/middleware"
	"checkout/internal/service"
)

// OrderHandler handles HTTP requests for orders and carts.
type OrderHandler struct {
	checkoutService *service.CheckoutService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(checkoutService *service.CheckoutService) *OrderHandler {
	return &OrderHandler{checkoutService: checkoutService}
}

// LineItemPayload is one cart or order line in requests and responses.
type LineItemPayload struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

// CartRequest is the HTTP request body for saving the cart.
type CartRequest struct {
	Currency string            `json:"currency"`
	Items    []LineItemPayload `json:"items"`
}

// CreateOrderRequest is the HTTP request body for placing an order.
type CreateOrderRequest struct {
	UserID     string            `json:"user_id"`
	CustomerID string            `json:"customer_id"`
	Currency   string            `json:"currency"`
	Items      []LineItemPayload `json:"items"`
}

// OrderResponse is the HTTP response for order operations.
type OrderResponse struct {
	ID                 string            `json:"id"`
	Status             string            `json:"status"`
	Total              decimal.Decimal   `json:"total"`
	Currency           string            `json:"currency"`
	Items              []LineItemPayload `json:"items"`
	AuthorizationID    string            `json:"authorization_id,omitempty"`
	ChargeID           string            `json:"charge_id,omitempty"`
	PaymentMethodTitle string            `json:"payment_method_title,omitempty"`
	FailureReason      string            `json:"failure_reason,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

// SaveCart handles PUT /v1/cart
func (h *OrderHandler) SaveCart(c *gin.Context) {
	var req CartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	err := h.checkoutService.SaveCart(c.Request.Context(), middleware.SessionID(c), service.Cart{
		Currency: req.Currency,
		Items:    toLineItems(req.Items),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateOrder handles POST /v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	order, err := h.checkoutService.CreateOrder(c.Request.Context(), service.CreateOrderRequest{
		SessionID:  middleware.SessionID(c),
		UserID:     req.UserID,
		CustomerID: req.CustomerID,
		Currency:   req.Currency,
		Items:      toLineItems(req.Items),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toOrderResponse(order))
}

// GetOrder handles GET /v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.checkoutService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

// OrderReceived handles GET /v1/orders/:id/received
func (h *OrderHandler) OrderReceived(c *gin.Context) {
	order, err := h.checkoutService.OrderReceived(c.Request.Context(), c.Param("id"), middleware.SessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

func toLineItems(items []LineItemPayload) []domain.LineItem {
	result := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		result = append(result, domain.LineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Total:     item.Total,
		})
	}
	return result
}

func toOrderResponse(order *domain.Order) OrderResponse {
	items := make([]LineItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Total:     item.Total,
		})
	}

	return OrderResponse{
		ID:                 order.ID,
		Status:             string(order.Status),
		Total:              order.Total,
		Currency:           order.Currency,
		Items:              items,
		AuthorizationID:    order.AuthorizationID,
		ChargeID:           order.ChargeID,
		PaymentMethodTitle: order.PaymentMethodTitle,
		FailureReason:      order.FailureReason,
		CreatedAt:          order.CreatedAt,
	}
}
