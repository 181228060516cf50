package paymentlink

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	apperrors "github.com/frahmantamala/paylink/internal"
)

type stubLinkService struct {
	merchantID string
	created    CreateInput
	link       *Link
	err        error
}

func (s *stubLinkService) Create(ctx context.Context, merchantID string, in CreateInput) (*Link, error) {
	s.merchantID = merchantID
	s.created = in
	return s.link, s.err
}

func (s *stubLinkService) LookupForPayment(ctx context.Context, code string) (*Link, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.link, nil
}

func (s *stubLinkService) Deactivate(ctx context.Context, code, ownerID string) (*Link, error) {
	s.merchantID = ownerID
	return s.link, s.err
}

func withCode(req *http.Request, code string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("code", code)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

var _ = ginkgo.Describe("Handler", func() {
	var (
		stub    *stubLinkService
		handler *Handler
	)

	ginkgo.BeforeEach(func() {
		stub = &stubLinkService{link: &Link{
			ID:         "link-1",
			Code:       "ABCD2345",
			MerchantID: "merchant-1",
			Amount:     decimal.NewFromInt(50),
			Token:      "USDC",
			Chain:      "solana",
			IsActive:   true,
		}}
		handler = NewHandler(stub, slog.Default())
	})

	ginkgo.Describe("CreateLink", func() {
		post := func(ctx context.Context, body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/links", strings.NewReader(body)).WithContext(ctx)
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			handler.CreateLink(rec, req)
			return rec
		}

		ginkgo.It("should create a link for the authenticated merchant", func() {
			// Given
			ctx := apperrors.ContextWithMerchantID(context.Background(), "merchant-1")

			// When
			rec := post(ctx, `{"amount":"50","token":"USDC","chain":"solana","title":"coffee"}`)

			// Then
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))
			gomega.Expect(stub.merchantID).To(gomega.Equal("merchant-1"))
			gomega.Expect(stub.created.Title).To(gomega.Equal("coffee"))
			gomega.Expect(stub.created.Amount.String()).To(gomega.Equal("50"))
		})

		ginkgo.It("should refuse anonymous callers", func() {
			rec := post(context.Background(), `{"amount":"50","token":"USDC","chain":"solana"}`)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(stub.merchantID).To(gomega.BeEmpty())
		})

		ginkgo.It("should name missing fields", func() {
			// Given
			ctx := apperrors.ContextWithMerchantID(context.Background(), "merchant-1")

			// When
			rec := post(ctx, `{"amount":"50","chain":"solana"}`)

			// Then
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("token"))
		})
	})

	ginkgo.Describe("GetLink", func() {
		get := func() *httptest.ResponseRecorder {
			req := withCode(httptest.NewRequest(http.MethodGet, "/api/v1/links/ABCD2345", nil), "ABCD2345")
			rec := httptest.NewRecorder()
			handler.GetLink(rec, req)
			return rec
		}

		ginkgo.It("should show payers the public view only", func() {
			// When
			rec := get()

			// Then
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			var body map[string]interface{}
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
			gomega.Expect(body["code"]).To(gomega.Equal("ABCD2345"))
			gomega.Expect(body["token"]).To(gomega.Equal("USDC"))
			gomega.Expect(body).ToNot(gomega.HaveKey("merchant_id"))
			gomega.Expect(body).ToNot(gomega.HaveKey("payment_count"))
		})

		ginkgo.It("should render an unknown link as not found", func() {
			// Given
			stub.err = apperrors.ErrLinkNotFound

			// When
			rec := get()

			// Then
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNotFound))
			var body map[string]map[string]interface{}
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
			gomega.Expect(body["error"]["code"]).To(gomega.Equal(string(apperrors.ErrCodeLinkNotFound)))
		})
	})

	ginkgo.Describe("DeactivateLink", func() {
		ginkgo.It("should pass the caller through as the owner", func() {
			// Given
			stub.link.IsActive = false
			ctx := apperrors.ContextWithMerchantID(context.Background(), "merchant-1")
			req := withCode(httptest.NewRequest(http.MethodPost, "/api/v1/links/ABCD2345/deactivate", nil).WithContext(ctx), "ABCD2345")
			rec := httptest.NewRecorder()

			// When
			handler.DeactivateLink(rec, req)

			// Then
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(stub.merchantID).To(gomega.Equal("merchant-1"))
		})

		ginkgo.It("should refuse a merchant that does not own the link", func() {
			// Given
			stub.err = apperrors.ErrForbidden
			req := withCode(httptest.NewRequest(http.MethodPost, "/api/v1/links/ABCD2345/deactivate", nil), "ABCD2345")
			rec := httptest.NewRecorder()

			// When
			handler.DeactivateLink(rec, req)

			// Then
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
		})
	})
})
