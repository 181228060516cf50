package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentRecorded  = "payment.recorded"
	EventTypePaymentConfirmed = "payment.confirmed"
	EventTypePaymentFailed    = "payment.failed"
)

// PaymentEvent describes a state change of a recorded on-chain payment.
type PaymentEvent struct {
	BaseEvent
	PaymentID     string `json:"payment_id"`
	PaymentLinkID string `json:"payment_link_id"`
	MerchantID    string `json:"merchant_id"`
	TxSignature   string `json:"tx_signature"`
	Chain         string `json:"chain"`
	Amount        string `json:"amount"`
	Token         string `json:"token"`
	Status        string `json:"status"`
	Confirmations int64  `json:"confirmations"`
}

type PaymentEventData struct {
	PaymentID     string
	PaymentLinkID string
	MerchantID    string
	TxSignature   string
	Chain         string
	Amount        string
	Token         string
	Status        string
	Confirmations int64
}

func NewPaymentEvent(eventType string, d PaymentEventData) *PaymentEvent {
	return &PaymentEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
		},
		PaymentID:     d.PaymentID,
		PaymentLinkID: d.PaymentLinkID,
		MerchantID:    d.MerchantID,
		TxSignature:   d.TxSignature,
		Chain:         d.Chain,
		Amount:        d.Amount,
		Token:         d.Token,
		Status:        d.Status,
		Confirmations: d.Confirmations,
	}
}

func NewPaymentRecordedEvent(d PaymentEventData) *PaymentEvent {
	return NewPaymentEvent(EventTypePaymentRecorded, d)
}

func NewPaymentConfirmedEvent(d PaymentEventData) *PaymentEvent {
	return NewPaymentEvent(EventTypePaymentConfirmed, d)
}

func NewPaymentFailedEvent(d PaymentEventData) *PaymentEvent {
	return NewPaymentEvent(EventTypePaymentFailed, d)
}
