package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/paylink/internal"
	"github.com/frahmantamala/paylink/internal/transport"
)

type ServiceAPI interface {
	Issue(ctx context.Context, merchantID, linkCode string) (*Credentials, error)
	Login(ctx context.Context, in LoginAttempt) (*LoginResult, error)
	RevokeAll(ctx context.Context, merchantID string) (int64, error)
	LinkOverview(ctx context.Context, scope errors.DashboardScope) (*LinkOverview, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     svc,
	}
}

// IssueCredentials handles POST /api/v1/links/{code}/dashboard-credentials
func (h *Handler) IssueCredentials(w http.ResponseWriter, r *http.Request) {
	merchantID := errors.MerchantIDFromContext(r.Context())
	code := chi.URLParam(r, "code")

	creds, err := h.Service.Issue(r.Context(), merchantID, code)
	if err != nil {
		h.Logger.Warn("IssueCredentials: service error", "error", err, "code", code, "merchant_id", merchantID)
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.WriteJSON(w, http.StatusCreated, creds)
}

// Login handles POST /api/v1/dashboard/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if appErr := h.DecodeJSON(r, &req); appErr != nil {
		h.HandleError(w, appErr)
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Service.Login(r.Context(), LoginAttempt{
		Identifier: req.Identifier,
		Password:   req.Password,
		IPAddress:  transport.ClientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.WriteJSON(w, http.StatusOK, result)
}

// RevokeSessions handles POST /api/v1/dashboard/sessions/revoke
func (h *Handler) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	merchantID := errors.MerchantIDFromContext(r.Context())

	n, err := h.Service.RevokeAll(r.Context(), merchantID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, RevokeResponse{Revoked: n})
}

// GetLinkOverview handles GET /api/v1/dashboard/links/{code}
func (h *Handler) GetLinkOverview(w http.ResponseWriter, r *http.Request) {
	scope, ok := errors.DashboardScopeFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.ErrInvalidToken)
		return
	}

	overview, err := h.Service.LinkOverview(r.Context(), scope)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, overview)
}
