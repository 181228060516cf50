package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/paylink/internal/chain"
	"github.com/frahmantamala/paylink/internal/dashboard"
	"github.com/frahmantamala/paylink/internal/payment"
	"github.com/frahmantamala/paylink/internal/paymentlink"
	"github.com/frahmantamala/paylink/internal/transport/rest"
	"github.com/frahmantamala/paylink/internal/transport/swagger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
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

	if _, err := swagger.LoadSpec(ctx, cfg.Server.OpenAPIPath); err != nil {
		app.Logger.Warn("openapi document failed to load, /openapi.yml may be stale", "path", cfg.Server.OpenAPIPath, "error", err)
	}

	router := setupRoutes(app)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			app.Close()
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(app *application) *chi.Mux {
	router := chi.NewRouter()

	health := rest.NewHealthHandler(app.DB.DB)
	if app.Redis != nil {
		health.WithComponent("redis", rest.PingFunc(func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}))
	}

	handlers := rest.Handlers{
		Health:    health,
		Links:     paymentlink.NewHandler(app.Links, app.Logger),
		Payments:  payment.NewHandler(app.Payments, app.Logger),
		Dashboard: dashboard.NewHandler(app.Dashboard, app.Logger),
	}
	if app.Chains != nil {
		handlers.Chains = chain.NewHandler(app.Chains, app.Logger)
	}

	rest.RegisterAllRoutes(router, handlers, rest.Security{
		Tokens:   app.Tokens,
		Links:    app.Links,
		Sessions: app.Dashboard,
	}, rest.Options{
		AllowedOrigins: app.Config.Server.AllowedOrigins,
		OpenAPIPath:    app.Config.Server.OpenAPIPath,
	}, app.Logger)

	return router
}
