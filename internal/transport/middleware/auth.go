package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"

	apperrors "github.com/frahmantamala/paylink/internal"
	"github.com/frahmantamala/paylink/internal/auth"
	"github.com/frahmantamala/paylink/internal/transport"
	"github.com/frahmantamala/paylink/pkg/logger"
)

type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// LinkResolver maps a public link code to its internal id.
type LinkResolver interface {
	ResolveLinkID(ctx context.Context, code string) (string, error)
}

// SessionChecker reports whether a dashboard session still authorizes access.
type SessionChecker interface {
	IsSessionActive(ctx context.Context, sessionID string) (bool, error)
}

// RequireMerchant accepts merchant tokens only and stores the merchant id in
// the request context.
func RequireMerchant(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, appErr := authenticate(r, validator)
			if appErr != nil {
				writeAppError(w, appErr)
				return
			}
			if claims.Role != auth.RoleMerchant {
				writeAppError(w, apperrors.NewForbiddenError("merchant token required", apperrors.ErrCodeForbidden))
				return
			}

			ctx := apperrors.ContextWithMerchantID(r.Context(), claims.MerchantID())
			ctx = logger.With(ctx, "merchant_id", claims.MerchantID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireDashboardLink accepts dashboard tokens whose payment_link_id matches
// the link addressed by the {param} URL parameter. Tokens for any other link
// are rejected even when the same merchant owns it.
func RequireDashboardLink(validator TokenValidator, links LinkResolver, sessions SessionChecker, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, appErr := authenticate(r, validator)
			if appErr != nil {
				writeAppError(w, appErr)
				return
			}
			if !claims.IsDashboard() {
				writeAppError(w, apperrors.NewForbiddenError("dashboard token required", apperrors.ErrCodeForbidden))
				return
			}

			log := logger.From(r.Context())

			linkID, err := links.ResolveLinkID(r.Context(), chi.URLParam(r, param))
			if err != nil {
				if e, ok := apperrors.IsAppError(err); ok {
					writeAppError(w, e)
					return
				}
				log.Error("failed to resolve dashboard link", "error", err)
				writeAppError(w, apperrors.NewInternalError("internal server error", err))
				return
			}
			if linkID != claims.PaymentLinkID {
				log.Warn("dashboard token used for another link",
					"token_link_id", claims.PaymentLinkID,
					"requested_link_id", linkID,
					"session_id", claims.SessionID)
				writeAppError(w, apperrors.ErrForbidden)
				return
			}

			if sessions != nil {
				active, err := sessions.IsSessionActive(r.Context(), claims.SessionID)
				if err != nil {
					log.Error("failed to check dashboard session", "error", err, "session_id", claims.SessionID)
					writeAppError(w, apperrors.NewInternalError("internal server error", err))
					return
				}
				if !active {
					writeAppError(w, apperrors.ErrInvalidToken)
					return
				}
			}

			ctx := apperrors.ContextWithDashboardScope(r.Context(), apperrors.DashboardScope{
				MerchantID:    claims.MerchantID(),
				PaymentLinkID: claims.PaymentLinkID,
				SessionID:     claims.SessionID,
			})
			ctx = logger.With(ctx, "merchant_id", claims.MerchantID(), "session_id", claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, validator TokenValidator) (*auth.Claims, *apperrors.AppError) {
	token := transport.ExtractBearerToken(r)
	if token == "" {
		return nil, apperrors.NewUnauthorizedError("authentication required", apperrors.ErrCodeInvalidToken)
	}
	claims, err := validator.ValidateToken(token)
	if err != nil {
		if appErr, ok := apperrors.IsAppError(err); ok {
			return nil, appErr
		}
		return nil, apperrors.ErrInvalidToken.WithCause(err)
	}
	return claims, nil
}

func writeAppError(w http.ResponseWriter, appErr *apperrors.AppError) {
	status, body := appErr.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
