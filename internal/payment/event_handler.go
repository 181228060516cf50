package payment

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/frahmantamala/paylink/internal"
	"github.com/frahmantamala/paylink/internal/core/events"
)

// TransactionMirror keeps a parallel ledger entry for every payment.
type TransactionMirror interface {
	MirrorPayment(ctx context.Context, event *events.PaymentEvent) error
}

// WebhookDispatcher notifies merchants about payment state changes.
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, event *events.PaymentEvent) error
}

type EventHandler struct {
	mirror     TransactionMirror
	dispatcher WebhookDispatcher
	payments   *Service
	bus        *events.EventBus
	logger     *slog.Logger
}

func NewEventHandler(mirror TransactionMirror, dispatcher WebhookDispatcher, payments *Service, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		mirror:     mirror,
		dispatcher: dispatcher,
		payments:   payments,
		logger:     logger,
	}
}

func (h *EventHandler) HandlePaymentRecorded(ctx context.Context, event events.Event) error {
	paymentEvent, err := asPaymentEvent(event)
	if err != nil {
		h.logger.Error("invalid event type for payment recorded handler", "event_type", event.EventType())
		return err
	}

	if h.mirror == nil {
		return nil
	}
	if err := h.mirror.MirrorPayment(ctx, paymentEvent); err != nil {
		h.logger.Warn("transaction mirror failed",
			"error", err,
			"payment_id", paymentEvent.PaymentID,
			"event_id", paymentEvent.EventID())
		return fmt.Errorf("mirror payment %s: %w", paymentEvent.PaymentID, err)
	}
	return nil
}

func (h *EventHandler) HandlePaymentStatusChanged(ctx context.Context, event events.Event) error {
	paymentEvent, err := asPaymentEvent(event)
	if err != nil {
		h.logger.Error("invalid event type for payment status handler", "event_type", event.EventType())
		return err
	}

	if h.mirror != nil {
		if err := h.mirror.MirrorPayment(ctx, paymentEvent); err != nil {
			h.logger.Warn("transaction mirror failed", "error", err, "payment_id", paymentEvent.PaymentID)
		}
	}

	if h.dispatcher == nil {
		return nil
	}
	if err := h.dispatcher.Dispatch(ctx, paymentEvent); err != nil {
		h.logger.Warn("webhook dispatch failed",
			"error", err,
			"payment_id", paymentEvent.PaymentID,
			"event_type", paymentEvent.EventType())
		return fmt.Errorf("dispatch %s for payment %s: %w", paymentEvent.EventType(), paymentEvent.PaymentID, err)
	}

	h.logger.Info("payment webhook dispatched",
		"payment_id", paymentEvent.PaymentID,
		"event_type", paymentEvent.EventType(),
		"event_id", paymentEvent.EventID())
	return nil
}

// Replay re-publishes the final-state event of a payment and waits for every
// subscriber to handle it.
func (h *EventHandler) Replay(ctx context.Context, paymentID string) error {
	p, err := h.payments.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}

	var event *events.PaymentEvent
	switch p.Status {
	case StatusConfirmed:
		event = events.NewPaymentConfirmedEvent(eventData(p))
	case StatusFailed:
		event = events.NewPaymentFailedEvent(eventData(p))
	default:
		return apperrors.NewConflictError("payment is still pending", apperrors.ErrCodePaymentPending)
	}

	if h.bus == nil {
		return h.HandlePaymentStatusChanged(ctx, event)
	}
	return h.bus.PublishSync(ctx, event)
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	h.bus = eventBus
	eventBus.Subscribe(events.EventTypePaymentRecorded, h.HandlePaymentRecorded)
	eventBus.Subscribe(events.EventTypePaymentConfirmed, h.HandlePaymentStatusChanged)
	eventBus.Subscribe(events.EventTypePaymentFailed, h.HandlePaymentStatusChanged)

	h.logger.Info("payment event handlers registered",
		"handlers", []string{events.EventTypePaymentRecorded, events.EventTypePaymentConfirmed, events.EventTypePaymentFailed})
}

func asPaymentEvent(event events.Event) (*events.PaymentEvent, error) {
	paymentEvent, ok := event.(*events.PaymentEvent)
	if !ok {
		return nil, fmt.Errorf("expected PaymentEvent, got %T", event)
	}
	return paymentEvent, nil
}
