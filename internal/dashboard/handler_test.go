package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/paylink/internal"
	"github.com/frahmantamala/paylink/internal/paymentlink"
)

type stubDashboardService struct {
	issuedFor [2]string
	attempt   LoginAttempt
	scope     apperrors.DashboardScope
	loginErr  error
}

func (s *stubDashboardService) Issue(ctx context.Context, merchantID, linkCode string) (*Credentials, error) {
	s.issuedFor = [2]string{merchantID, linkCode}
	return &Credentials{
		Identifier:        "ABCD2345-k3x9",
		TemporaryPassword: "one-time-secret",
		PaymentLinkID:     "link-1",
		ExpiresAt:         time.Now().Add(time.Hour),
	}, nil
}

func (s *stubDashboardService) Login(ctx context.Context, in LoginAttempt) (*LoginResult, error) {
	s.attempt = in
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &LoginResult{AccessToken: "jwt", TokenType: "Bearer", PaymentLinkID: "link-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (s *stubDashboardService) RevokeAll(ctx context.Context, merchantID string) (int64, error) {
	return 3, nil
}

func (s *stubDashboardService) LinkOverview(ctx context.Context, scope apperrors.DashboardScope) (*LinkOverview, error) {
	s.scope = scope
	return &LinkOverview{Link: &paymentlink.Link{ID: scope.PaymentLinkID}}, nil
}

var _ = ginkgo.Describe("Handler", func() {
	var (
		stub    *stubDashboardService
		handler *Handler
	)

	login := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/dashboard/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "merchant-browser")
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.Login(rec, req)
		return rec
	}

	errorCode := func(rec *httptest.ResponseRecorder) interface{} {
		var body map[string]map[string]interface{}
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
		return body["error"]["code"]
	}

	ginkgo.BeforeEach(func() {
		stub = &stubDashboardService{}
		handler = NewHandler(stub, slog.Default())
	})

	ginkgo.Describe("IssueCredentials", func() {
		ginkgo.It("should return one-time credentials that caches must not keep", func() {
			// Given
			ctx := apperrors.ContextWithMerchantID(context.Background(), "merchant-1")
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("code", "ABCD2345")
			ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/links/ABCD2345/dashboard-credentials", nil).WithContext(ctx)
			rec := httptest.NewRecorder()

			// When
			handler.IssueCredentials(rec, req)

			// Then
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))
			gomega.Expect(rec.Header().Get("Cache-Control")).To(gomega.Equal("no-store"))
			gomega.Expect(stub.issuedFor).To(gomega.Equal([2]string{"merchant-1", "ABCD2345"}))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("one-time-secret"))
		})
	})

	ginkgo.Describe("Login", func() {
		ginkgo.It("should return a token with client metadata recorded", func() {
			// When
			rec := login(`{"identifier":"ABCD2345-k3x9","password":"one-time-secret"}`)

			// Then
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Header().Get("Cache-Control")).To(gomega.Equal("no-store"))
			gomega.Expect(stub.attempt.IPAddress).To(gomega.Equal("203.0.113.7"))
			gomega.Expect(stub.attempt.UserAgent).To(gomega.Equal("merchant-browser"))
		})

		ginkgo.It("should answer bad credentials with a uniform 401", func() {
			// Given
			stub.loginErr = apperrors.ErrInvalidCredentials

			// When
			rec := login(`{"identifier":"ABCD2345-k3x9","password":"wrong"}`)

			// Then
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(errorCode(rec)).To(gomega.Equal(string(apperrors.ErrCodeInvalidCredentials)))
		})

		ginkgo.It("should answer a locked identifier with 429", func() {
			// Given
			stub.loginErr = apperrors.ErrTooManyAttempts

			// When
			rec := login(`{"identifier":"ABCD2345-k3x9","password":"wrong"}`)

			// Then
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusTooManyRequests))
			gomega.Expect(errorCode(rec)).To(gomega.Equal(string(apperrors.ErrCodeTooManyAttempts)))
		})

		ginkgo.It("should reject a body without a password before calling the service", func() {
			rec := login(`{"identifier":"ABCD2345-k3x9"}`)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(stub.attempt.Identifier).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("RevokeSessions", func() {
		ginkgo.It("should report how many sessions were revoked", func() {
			ctx := apperrors.ContextWithMerchantID(context.Background(), "merchant-1")
			req := httptest.NewRequest(http.MethodPost, "/api/v1/dashboard/sessions/revoke", nil).WithContext(ctx)
			rec := httptest.NewRecorder()

			handler.RevokeSessions(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(`"revoked":3`))
		})
	})

	ginkgo.Describe("GetLinkOverview", func() {
		ginkgo.It("should serve the link bound to the dashboard token", func() {
			// Given
			ctx := apperrors.ContextWithDashboardScope(context.Background(), apperrors.DashboardScope{
				MerchantID:    "merchant-1",
				PaymentLinkID: "link-1",
				SessionID:     "session-1",
			})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/links/ABCD2345", nil).WithContext(ctx)
			rec := httptest.NewRecorder()

			// When
			handler.GetLinkOverview(rec, req)

			// Then
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(stub.scope.PaymentLinkID).To(gomega.Equal("link-1"))
		})

		ginkgo.It("should refuse requests without a dashboard scope", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/links/ABCD2345", nil)
			rec := httptest.NewRecorder()

			handler.GetLinkOverview(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})
})
