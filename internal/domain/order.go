package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the current status of a purchase order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusOnHold     OrderStatus = "ON_HOLD"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusFailed     OrderStatus = "FAILED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// IsPaid reports whether the status means the customer has been charged.
func (s OrderStatus) IsPaid() bool {
	return s == OrderStatusProcessing || s == OrderStatusCompleted
}

// IsSettled reports whether the order no longer awaits a payment outcome.
func (s OrderStatus) IsSettled() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusCompleted, OrderStatusOnHold, OrderStatusCancelled:
		return true
	}
	return false
}

// LineItem is one purchased product line.
type LineItem struct {
	ProductID string
	Name      string
	Quantity  int
	Total     decimal.Decimal
}

// Order represents a purchase order owned by the storefront.
type Order struct {
	ID                 string
	UserID             string // Empty for guest checkouts
	CustomerID         string // Processor-side customer reference
	Status             OrderStatus
	Total              decimal.Decimal
	Currency           string
	Items              []LineItem
	CartHash           string
	AuthorizationID    string
	ChargeID           string
	PaymentMethodID    string
	PaymentTokenID     string
	PaymentMethodTitle string
	StockReduced       bool
	FailureReason      string
	Notes              []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsGuest reports whether the order has no registered owner.
func (o *Order) IsGuest() bool {
	return o.UserID == ""
}

// CartHash returns a content hash over the line items. Item order does not
// affect the result.
func CartHash(items []LineItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, item.ProductID+"|"+strconv.Itoa(item.Quantity)+"|"+item.Total.StringFixed(2))
	}
	sort.Strings(lines)

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// PaymentDetails are the durable payment facts written onto an order.
type PaymentDetails struct {
	AuthorizationID     string
	AuthorizationStatus AuthorizationStatus
	ChargeID            string
	Currency            string
	PaymentMethodID     string
	PaymentMethodTitle  string
	PaymentTokenID      string
}
