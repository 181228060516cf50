package payment

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/paylink/internal/transport"
)

type ServiceAPI interface {
	RecordPayment(ctx context.Context, in RecordInput) (*Payment, error)
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

// RecordPayment handles POST /api/v1/payments
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if appErr := h.DecodeJSON(r, &req); appErr != nil {
		h.Logger.Warn("RecordPayment: failed to parse request body", "error", appErr.Cause)
		h.HandleError(w, appErr)
		return
	}

	p, err := h.Service.RecordPayment(r.Context(), req.ToInput())
	if err != nil {
		h.Logger.Warn("RecordPayment: service error",
			"error", err,
			"link_code", req.LinkCode,
			"tx_signature", req.TxSignature,
			"chain", req.Chain)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}
