package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Payment event commands",
	Long:  `Inspect and re-deliver payment events to the ledger mirror and webhook topic`,
}

var replayEventCmd = &cobra.Command{
	Use:   "replay [payment-id]",
	Short: "Re-send the webhook for a settled payment",
	Long:  `Re-publish the confirmed or failed webhook of a payment, e.g. after a broker outage`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		replayPaymentEvent(args[0])
	},
}

func replayPaymentEvent(paymentID string) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	app, err := newApplication(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Kafka == nil {
		app.Logger.Warn("kafka not configured, replay only reaches the ledger mirror")
	}

	app.Logger.Info("replaying payment event", "payment_id", paymentID)
	if err := app.EventHandler.Replay(ctx, paymentID); err != nil {
		app.Logger.Error("failed to replay payment event", "payment_id", paymentID, "error", err)
		app.Close()
		os.Exit(1)
	}
	app.Logger.Info("payment event replayed successfully", "payment_id", paymentID)
}

func init() {
	eventCmd.AddCommand(replayEventCmd)

	rootCmd.AddCommand(eventCmd)
}
