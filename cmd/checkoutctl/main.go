package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"checkout/internal/app"
	"checkout/internal/config"
	"checkout/internal/service"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "checkoutctl",
		Short:   "Operate on checkout orders outside of a browser session",
		Version: Version,
	}

	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "Timeout for each command")

	rootCmd.AddCommand(orderCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(renewCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func orderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order [order-id]",
		Short: "Show an order and its payment details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.CheckoutService) error {
				order, err := svc.GetOrder(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, order)
			})
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [order-id]",
		Short: "Settle an order from the processor's authorization state",
		Long: `Load the authorization stored on the order from the processor and
settle the order the same way the post-challenge return does. Use it for
customers who never came back from an authentication challenge.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.CheckoutService) error {
				result, err := svc.Reconcile(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
}

func renewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "renew [order-id]",
		Short: "Charge a renewal order with a saved payment method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenID, _ := cmd.Flags().GetString("token")
			return withService(cmd, func(ctx context.Context, svc *service.CheckoutService) error {
				result, err := svc.ChargeRenewal(ctx, service.RenewalRequest{
					OrderID: args[0],
					TokenID: tokenID,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}

	cmd.Flags().StringP("token", "t", "", "Saved payment token to charge")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

// withService connects to the stores and runs fn with a checkout service.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.CheckoutService) error) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	db, err := app.NewDatabase(ctx, cfg.Database, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nil)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	publisher, closePublisher, err := app.NewPublisher(cfg.Kafka)
	if err != nil {
		return err
	}
	defer closePublisher()

	return fn(ctx, app.NewCheckoutService(db, redisClient, publisher, cfg))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
