package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"checkout/internal/handler"
	"checkout/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	CheckoutHandler *handler.CheckoutHandler
	OrderHandler    *handler.OrderHandler
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
	SecureCookie    bool
	IdempotencyTTL  time.Duration
	OperatorToken   string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.SessionMiddleware(deps.SecureCookie))
	router.Use(middleware.NewRelicAttributes())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Cart routes.
		v1.PUT("/cart", deps.OrderHandler.SaveCart)

		// Order routes.
		orders := v1.Group("/orders")
		{
			orders.POST("", deps.OrderHandler.CreateOrder)
			orders.GET("/:id", deps.OrderHandler.GetOrder)
			orders.GET("/:id/received", deps.OrderHandler.OrderReceived)
		}

		// Checkout routes.
		checkout := v1.Group("/checkout")
		{
			checkout.POST("", middleware.IdempotencyMiddleware(deps.RedisClient, deps.IdempotencyTTL), deps.CheckoutHandler.Checkout)
			checkout.GET("/confirm", deps.CheckoutHandler.Confirm)
		}

		// Embedded payment field routes.
		v1.POST("/intents", deps.CheckoutHandler.PrepareIntent)

		// Back-office routes. Renewals charge without the customer present.
		operator := v1.Group("/internal", middleware.OperatorAuth(deps.OperatorToken))
		{
			operator.POST("/orders/:id/renewal", middleware.IdempotencyMiddleware(deps.RedisClient, deps.IdempotencyTTL), deps.CheckoutHandler.ChargeRenewal)
		}
	}

	return router
}
