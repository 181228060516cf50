package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("LoggingMiddleware", func() {
	var (
		out     *bytes.Buffer
		handler http.Handler
	)

	serve := func(next http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
		handler = LoggingMiddleware(slog.New(slog.NewJSONHandler(out, nil)))(next)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	ginkgo.BeforeEach(func() {
		out = &bytes.Buffer{}
	})

	ginkgo.It("should keep the payment token symbol and mask credentials", func() {
		// Given
		req := httptest.NewRequest(http.MethodPost, "/pay/abc/payments",
			strings.NewReader(`{"amount":"10","token":"USDC","password":"hunter2"}`))
		req.Header.Set("Authorization", "Bearer secret-jwt")

		// When
		rec := serve(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}, req)

		// Then
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusCreated))
		logged := out.String()
		gomega.Expect(logged).To(gomega.ContainSubstring("USDC"))
		gomega.Expect(logged).ToNot(gomega.ContainSubstring("hunter2"))
		gomega.Expect(logged).ToNot(gomega.ContainSubstring("secret-jwt"))
	})

	ginkgo.It("should leave the request body readable for the next handler", func() {
		// Given
		req := httptest.NewRequest(http.MethodPost, "/links", strings.NewReader(`{"title":"coffee"}`))
		var seen string

		// When
		serve(func(w http.ResponseWriter, r *http.Request) {
			buf := new(bytes.Buffer)
			_, _ = buf.ReadFrom(r.Body)
			seen = buf.String()
		}, req)

		// Then
		gomega.Expect(seen).To(gomega.Equal(`{"title":"coffee"}`))
	})

	ginkgo.It("should not log response bodies marked no-store", func() {
		// Given
		req := httptest.NewRequest(http.MethodPost, "/links/abc/dashboard-credentials", nil)

		// When
		rec := serve(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"identifier":"abc-1","secret_hint":"Zq9-one-time-value"}`))
		}, req)

		// Then
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("Zq9-one-time-value"))
		gomega.Expect(out.String()).ToNot(gomega.ContainSubstring("Zq9-one-time-value"))
		gomega.Expect(out.String()).To(gomega.ContainSubstring("no-store"))
	})

	ginkgo.It("should cap the captured response body but report the full size", func() {
		// Given
		req := httptest.NewRequest(http.MethodGet, "/big", nil)
		payload := bytes.Repeat([]byte("a"), maxLoggedBody*2)

		// When
		rec := serve(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(payload)
		}, req)

		// Then
		gomega.Expect(rec.Body.Len()).To(gomega.Equal(len(payload)))
		gomega.Expect(out.String()).To(gomega.ContainSubstring(`"response_size":8192`))
		gomega.Expect(out.String()).To(gomega.ContainSubstring("[NON-JSON BODY]"))
	})
})
