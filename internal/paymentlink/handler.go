package paymentlink

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/paylink/internal"
	"github.com/frahmantamala/paylink/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, merchantID string, in CreateInput) (*Link, error)
	LookupForPayment(ctx context.Context, code string) (*Link, error)
	Deactivate(ctx context.Context, code, ownerID string) (*Link, error)
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

// CreateLink handles POST /api/v1/links
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	merchantID := errors.MerchantIDFromContext(r.Context())
	if merchantID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var req CreateLinkRequest
	if appErr := h.DecodeJSON(r, &req); appErr != nil {
		h.HandleError(w, appErr)
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	link, err := h.Service.Create(r.Context(), merchantID, req.ToInput())
	if err != nil {
		h.Logger.Error("CreateLink: service error", "error", err, "merchant_id", merchantID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, link)
}

// GetLink handles GET /api/v1/links/{code}
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	link, err := h.Service.LookupForPayment(r.Context(), code)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToPublicResponse(link))
}

// DeactivateLink handles POST /api/v1/links/{code}/deactivate
func (h *Handler) DeactivateLink(w http.ResponseWriter, r *http.Request) {
	merchantID := errors.MerchantIDFromContext(r.Context())
	code := chi.URLParam(r, "code")

	link, err := h.Service.Deactivate(r.Context(), code, merchantID)
	if err != nil {
		h.Logger.Warn("DeactivateLink: service error", "error", err, "code", code, "merchant_id", merchantID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, link)
}
