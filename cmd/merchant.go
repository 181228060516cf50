package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var merchantCmd = &cobra.Command{
	Use:   "merchant",
	Short: "Merchant management commands",
}

var createMerchantCmd = &cobra.Command{
	Use:   "create [identifier] [name]",
	Short: "Register a merchant",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		createMerchant(args[0], args[1])
	},
}

var merchantTokenCmd = &cobra.Command{
	Use:   "token [identifier]",
	Short: "Mint a merchant API token",
	Long:  `Mint a merchant access token for the management API (link creation, dashboard credentials, revocation)`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mintMerchantToken(args[0])
	},
}

func createMerchant(identifier, name string) {
	withApplication(func(ctx context.Context, app *application) error {
		m, err := app.Merchants.Create(ctx, identifier, name)
		if err != nil {
			return err
		}
		app.Logger.Info("merchant created", "merchant_id", m.ID, "identifier", m.Identifier)
		fmt.Println(m.ID)
		return nil
	})
}

func mintMerchantToken(identifier string) {
	withApplication(func(ctx context.Context, app *application) error {
		m, err := app.Merchants.FindByIdentifier(ctx, identifier)
		if err != nil {
			return err
		}
		token, expiresAt, err := app.Tokens.GenerateMerchantToken(m.ID)
		if err != nil {
			return err
		}
		app.Logger.Info("merchant token issued", "merchant_id", m.ID, "expires_at", expiresAt.Format(time.RFC3339))
		fmt.Println(token)
		return nil
	})
}

// withApplication runs a one-shot command against fully wired services and
// exits non-zero when it fails.
func withApplication(run func(ctx context.Context, app *application) error) {
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

	err = run(ctx, app)
	app.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	merchantCmd.AddCommand(createMerchantCmd)
	merchantCmd.AddCommand(merchantTokenCmd)

	rootCmd.AddCommand(merchantCmd)
}
