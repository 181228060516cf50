package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Dashboard session maintenance",
}

var pruneSessionsCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired dashboard sessions",
	Run: func(cmd *cobra.Command, args []string) {
		withApplication(func(ctx context.Context, app *application) error {
			deleted, err := app.Dashboard.PruneExpired(ctx)
			if err != nil {
				return err
			}
			app.Logger.Info("expired dashboard sessions pruned", "deleted", deleted)
			return nil
		})
	},
}

func init() {
	sessionsCmd.AddCommand(pruneSessionsCmd)

	rootCmd.AddCommand(sessionsCmd)
}
