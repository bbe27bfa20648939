package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicAttributes returns middleware that tags the request's New Relic
// transaction with the checkout session and notices handler errors. It must
// run after nrgin.Middleware and SessionMiddleware.
func NewRelicAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if id := SessionID(c); id != "" {
			txn.AddAttribute("checkout.session_id", id)
		}

		c.Next()

		// Record error if present.
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
		if orderID := c.GetString("order_id"); orderID != "" {
			txn.AddAttribute("checkout.order_id", orderID)
		}
	}
}
