package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/paylink/internal/chain"
	"github.com/frahmantamala/paylink/internal/dashboard"
	"github.com/frahmantamala/paylink/internal/payment"
	"github.com/frahmantamala/paylink/internal/paymentlink"
	"github.com/frahmantamala/paylink/internal/transport/middleware"
	"github.com/frahmantamala/paylink/internal/transport/swagger"
)

type Handlers struct {
	Health    *HealthHandler
	Links     *paymentlink.Handler
	Payments  *payment.Handler
	Dashboard *dashboard.Handler
	Chains    *chain.Handler
}

// Security carries what the auth middleware needs to verify merchant and
// dashboard tokens.
type Security struct {
	Tokens   middleware.TokenValidator
	Links    middleware.LinkResolver
	Sessions middleware.SessionChecker
}

type Options struct {
	AllowedOrigins string
	OpenAPIPath    string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, sec Security, opts Options, logger *slog.Logger) {
	// Apply global middleware
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, opts.OpenAPIPath)
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		// Public routes
		if h.Links != nil {
			r.Get("/links/{code}", h.Links.GetLink)
		}
		if h.Payments != nil {
			r.Post("/payments", h.Payments.RecordPayment)
		}
		if h.Dashboard != nil {
			r.Post("/dashboard/login", h.Dashboard.Login)
		}
		if h.Chains != nil {
			r.Get("/chains/{chain}/transactions/{signature}", h.Chains.GetTransactionStatus)
		}

		if sec.Tokens == nil {
			return
		}

		// Merchant routes
		r.Group(func(mr chi.Router) {
			mr.Use(middleware.RequireMerchant(sec.Tokens))

			if h.Links != nil {
				mr.Post("/links", h.Links.CreateLink)
				mr.Post("/links/{code}/deactivate", h.Links.DeactivateLink)
			}
			if h.Dashboard != nil {
				mr.Post("/links/{code}/dashboard-credentials", h.Dashboard.IssueCredentials)
				mr.Post("/dashboard/sessions/revoke", h.Dashboard.RevokeSessions)
			}
		})

		// Dashboard routes, scoped to the link in the URL
		if h.Dashboard != nil && sec.Links != nil {
			r.Group(func(dr chi.Router) {
				dr.Use(middleware.RequireDashboardLink(sec.Tokens, sec.Links, sec.Sessions, "code"))
				dr.Get("/dashboard/links/{code}", h.Dashboard.GetLinkOverview)
			})
		}
	})
}
