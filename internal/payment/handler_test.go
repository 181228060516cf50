package payment_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/paylink/internal"
	paymentPkg "github.com/frahmantamala/paylink/internal/payment"
)

type stubRecorder struct {
	got    paymentPkg.RecordInput
	result *paymentPkg.Payment
	err    error
}

func (s *stubRecorder) RecordPayment(ctx context.Context, in paymentPkg.RecordInput) (*paymentPkg.Payment, error) {
	s.got = in
	return s.result, s.err
}

var _ = Describe("Handler", func() {
	var (
		stub    *stubRecorder
		handler *paymentPkg.Handler
	)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.RecordPayment(rec, req)
		return rec
	}

	BeforeEach(func() {
		stub = &stubRecorder{result: &paymentPkg.Payment{ID: "p-1", Status: paymentPkg.StatusConfirmed}}
		handler = paymentPkg.NewHandler(stub, slog.Default())
	})

	It("should default confirmed to true", func() {
		// When
		rec := post(`{"link_code":"ABCD2345","tx_signature":"sig1","chain":"solana","amount":"50","token":"USDC"}`)

		// Then
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(stub.got.Confirmed).To(BeTrue())
		Expect(stub.got.Amount.String()).To(Equal("50"))
	})

	It("should honor an explicit pending submission", func() {
		rec := post(`{"link_code":"ABCD2345","tx_signature":"sig1","chain":"solana","amount":"50","token":"USDC","confirmed":false,"confirmations":3}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(stub.got.Confirmed).To(BeFalse())
		Expect(stub.got.Confirmations).To(Equal(int64(3)))
	})

	It("should map registry errors to their status codes", func() {
		// Given
		stub.err = apperrors.ErrLinkExpired

		// When
		rec := post(`{"link_code":"ABCD2345","tx_signature":"sig1","chain":"solana","amount":"50","token":"USDC"}`)

		// Then
		Expect(rec.Code).To(Equal(http.StatusGone))
		var body map[string]map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["error"]["code"]).To(Equal(string(apperrors.ErrCodeLinkExpired)))
	})

	It("should reject unknown fields", func() {
		rec := post(`{"link_code":"ABCD2345","surprise":true}`)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})
})
