package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/paylink/internal/confirmation"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background worker pools such as on-chain payment confirmation.`,
}

var confirmationWorkerCmd = &cobra.Command{
	Use:   "confirmations",
	Short: "Start payment confirmation worker pool",
	Long:  `Poll pending payments and promote them to confirmed or failed from their on-chain status`,
	Run: func(cmd *cobra.Command, args []string) {
		startConfirmationWorker()
	},
}

var (
	maxWorkers      int
	jobQueueSize    int
	batchSize       int
	pollInterval    time.Duration
	notFoundTimeout time.Duration
)

func startConfirmationWorker() {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	app, err := newApplication(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	logger := app.Logger
	if app.Chains == nil {
		logger.Error("no rpc chains configured, nothing to confirm against")
		return
	}

	// Use command line flags if provided, otherwise use config values
	confirmationConfig := confirmation.Config{
		MaxWorkers:      getIntFlag(maxWorkers, cfg.Confirmation.MaxWorkers),
		JobQueueSize:    getIntFlag(jobQueueSize, cfg.Confirmation.JobQueueSize),
		BatchSize:       getIntFlag(batchSize, cfg.Confirmation.BatchSize),
		PollInterval:    getDurationFlag(pollInterval, cfg.Confirmation.PollInterval),
		NotFoundTimeout: getDurationFlag(notFoundTimeout, cfg.Confirmation.NotFoundTimeout),
	}

	logger.Info("starting confirmation worker",
		"max_workers", confirmationConfig.MaxWorkers,
		"job_queue_size", confirmationConfig.JobQueueSize,
		"batch_size", confirmationConfig.BatchSize,
		"poll_interval", confirmationConfig.PollInterval,
		"not_found_timeout", confirmationConfig.NotFoundTimeout)

	confirmer := confirmation.NewConfirmer(app.Payments, app.Chains, confirmationConfig, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- confirmer.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("confirmation worker is running. Press Ctrl+C to stop.")

	// wait for shutdown signal
	sig := <-sigChan
	logger.Info("received signal, shutting down confirmation worker", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("confirmation worker stopped with error", "error", err)
		}
		logger.Info("confirmation worker pool shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout reached, forcing exit")
	}
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func getDurationFlag(flagValue, configValue time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	confirmationWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	confirmationWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	confirmationWorkerCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Pending payments fetched per poll (overrides config)")
	confirmationWorkerCmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "Delay between polls (overrides config)")
	confirmationWorkerCmd.Flags().DurationVar(&notFoundTimeout, "not-found-timeout", 0, "Fail payments the chain has not seen after this long (overrides config)")

	workerCmd.AddCommand(confirmationWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
