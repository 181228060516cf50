package chain

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/paylink/internal/transport"
)

type ServiceAPI interface {
	TransactionStatus(ctx context.Context, chain, signature string) (*TxStatus, error)
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

// GetTransactionStatus handles GET /api/v1/chains/{chain}/transactions/{signature}
func (h *Handler) GetTransactionStatus(w http.ResponseWriter, r *http.Request) {
	chainName := chi.URLParam(r, "chain")
	signature := chi.URLParam(r, "signature")

	status, err := h.Service.TransactionStatus(r.Context(), chainName, signature)
	if err != nil {
		h.Logger.Warn("GetTransactionStatus: lookup failed", "chain", chainName, "signature", signature, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, status)
}
