package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"checkout/internal/app"
	"checkout/internal/config"
	"checkout/internal/events"
	"checkout/internal/handler"
)

func main() {
	// Load .env if present; the real environment wins.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	publisher, closePublisher, err := app.NewPublisher(cfg.Kafka)
	if err != nil {
		log.Fatalf("failed to connect to kafka: %v", err)
	}
	defer closePublisher()
	if cfg.Kafka.Enabled {
		log.Printf("Publishing checkout events to %s", cfg.Kafka.Topic)
	}

	server := wireServer(db, redisClient, publisher, nrApp, cfg)

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}
	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, publisher events.Publisher, nrApp *newrelic.Application, cfg *config.Config) *http.Server {
	checkoutService := app.NewCheckoutService(db, redisClient, publisher, cfg)

	router := app.NewRouter(app.RouterDeps{
		CheckoutHandler: handler.NewCheckoutHandler(checkoutService),
		OrderHandler:    handler.NewOrderHandler(checkoutService),
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
		SecureCookie:    cfg.Server.SecureCookie,
		IdempotencyTTL:  cfg.Checkout.IdempotencyTTL,
		OperatorToken:   cfg.Checkout.OperatorToken,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
