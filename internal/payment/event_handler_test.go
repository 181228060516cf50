package payment_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	apperrors "github.com/frahmantamala/paylink/internal"
	"github.com/frahmantamala/paylink/internal/core/events"
	paymentPkg "github.com/frahmantamala/paylink/internal/payment"
)

// eventSink records what reached it and can be told to fail.
type eventSink struct {
	mu   sync.Mutex
	seen []*events.PaymentEvent
	err  error
}

func (s *eventSink) record(event *events.PaymentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, event)
	return s.err
}

func (s *eventSink) MirrorPayment(ctx context.Context, event *events.PaymentEvent) error {
	return s.record(event)
}

func (s *eventSink) Dispatch(ctx context.Context, event *events.PaymentEvent) error {
	return s.record(event)
}

func (s *eventSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.seen))
	for _, e := range s.seen {
		out = append(out, e.EventType())
	}
	return out
}

var _ = Describe("EventHandler", func() {
	var (
		ctx        context.Context
		repo       *mockPaymentRepository
		mirror     *eventSink
		dispatcher *eventSink
		bus        *events.EventBus
		handler    *paymentPkg.EventHandler
	)

	store := func(id, status string) *paymentPkg.Payment {
		p := &paymentPkg.Payment{
			ID:            id,
			PaymentLinkID: "link-1",
			MerchantID:    "merchant-1",
			TxSignature:   "sig-" + id,
			Chain:         "solana",
			Amount:        decimal.NewFromInt(50),
			Token:         "USDC",
			Status:        status,
		}
		Expect(repo.InsertUnique(ctx, p)).To(Succeed())
		return p
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockPaymentRepository()
		mirror = &eventSink{}
		dispatcher = &eventSink{}
		bus = events.NewEventBus(slog.Default())

		service := paymentPkg.NewService(repo, nil, bus, slog.Default())
		handler = paymentPkg.NewEventHandler(mirror, dispatcher, service, slog.Default())
		handler.RegisterEventHandlers(bus)
	})

	Describe("fan-out", func() {
		It("should mirror recorded payments without notifying the merchant", func() {
			// When
			Expect(bus.Publish(ctx, events.NewPaymentRecordedEvent(events.PaymentEventData{PaymentID: "p-1"}))).To(Succeed())
			Expect(bus.Wait(ctx)).To(Succeed())

			// Then
			Expect(mirror.types()).To(Equal([]string{events.EventTypePaymentRecorded}))
			Expect(dispatcher.types()).To(BeEmpty())
		})

		It("should mirror and dispatch status changes", func() {
			// When
			Expect(bus.Publish(ctx, events.NewPaymentConfirmedEvent(events.PaymentEventData{PaymentID: "p-1"}))).To(Succeed())
			Expect(bus.Wait(ctx)).To(Succeed())

			// Then
			Expect(mirror.types()).To(Equal([]string{events.EventTypePaymentConfirmed}))
			Expect(dispatcher.types()).To(Equal([]string{events.EventTypePaymentConfirmed}))
		})
	})

	Describe("HandlePaymentStatusChanged", func() {
		It("should still dispatch when the mirror is down", func() {
			// Given
			mirror.err = errors.New("ledger unavailable")

			// When
			err := handler.HandlePaymentStatusChanged(ctx, events.NewPaymentFailedEvent(events.PaymentEventData{PaymentID: "p-1"}))

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(dispatcher.types()).To(Equal([]string{events.EventTypePaymentFailed}))
		})

		It("should surface dispatch failures", func() {
			dispatcher.err = errors.New("broker unavailable")

			err := handler.HandlePaymentStatusChanged(ctx, events.NewPaymentConfirmedEvent(events.PaymentEventData{PaymentID: "p-1"}))

			Expect(err).To(MatchError(ContainSubstring("broker unavailable")))
		})

		It("should reject events of another shape", func() {
			err := handler.HandlePaymentStatusChanged(ctx, events.BaseEvent{ID: "e-1", Type: events.EventTypePaymentConfirmed})

			Expect(err).To(HaveOccurred())
			Expect(dispatcher.types()).To(BeEmpty())
		})
	})

	Describe("Replay", func() {
		It("should re-send a confirmed payment and wait for delivery", func() {
			// Given
			p := store("p-confirmed", paymentPkg.StatusConfirmed)

			// When
			err := handler.Replay(ctx, p.ID)

			// Then
			Expect(err).ToNot(HaveOccurred())
			Expect(dispatcher.types()).To(Equal([]string{events.EventTypePaymentConfirmed}))
			dispatcher.mu.Lock()
			Expect(dispatcher.seen[0].PaymentID).To(Equal(p.ID))
			Expect(dispatcher.seen[0].Token).To(Equal("USDC"))
			dispatcher.mu.Unlock()
		})

		It("should report a delivery failure to the caller", func() {
			// Given
			p := store("p-failed", paymentPkg.StatusFailed)
			dispatcher.err = errors.New("broker unavailable")

			// When
			err := handler.Replay(ctx, p.ID)

			// Then
			Expect(err).To(MatchError(ContainSubstring("broker unavailable")))
		})

		It("should refuse to replay a pending payment", func() {
			// Given
			p := store("p-pending", paymentPkg.StatusPending)

			// When
			err := handler.Replay(ctx, p.ID)

			// Then
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodePaymentPending))
			Expect(dispatcher.types()).To(BeEmpty())
		})

		It("should report unknown payments as not found", func() {
			err := handler.Replay(ctx, "missing")

			Expect(errors.Is(err, apperrors.ErrPaymentNotFound)).To(BeTrue())
		})
	})
})
