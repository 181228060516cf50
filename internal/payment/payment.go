package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	paymentDatamodel "github.com/frahmantamala/paylink/internal/core/datamodel/payment"
	"github.com/frahmantamala/paylink/internal/core/events"
)

const (
	StatusPending   = paymentDatamodel.StatusPending
	StatusConfirmed = paymentDatamodel.StatusConfirmed
	StatusFailed    = paymentDatamodel.StatusFailed
)

type Payment struct {
	ID            string          `json:"id"`
	PaymentLinkID string          `json:"payment_link_id"`
	MerchantID    string          `json:"merchant_id"`
	TxSignature   string          `json:"tx_signature"`
	Chain         string          `json:"chain"`
	Amount        decimal.Decimal `json:"amount"`
	Token         string          `json:"token"`
	Status        string          `json:"status"`
	Confirmations int64           `json:"confirmations"`
	FailureReason *string         `json:"failure_reason,omitempty"`
	ConfirmedAt   *time.Time      `json:"confirmed_at,omitempty"`
	LastCheckedAt *time.Time      `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (p *Payment) IsPending() bool {
	return p.Status == StatusPending
}

var (
	ErrNotFound = errors.New("payment not found")
	// ErrDuplicate means the (tx_signature, chain) pair is already recorded.
	ErrDuplicate = errors.New("payment already recorded for this transaction")
)

func ToDataModel(p *Payment) *paymentDatamodel.Payment {
	return &paymentDatamodel.Payment{
		ID:            p.ID,
		PaymentLinkID: p.PaymentLinkID,
		MerchantID:    p.MerchantID,
		TxSignature:   p.TxSignature,
		Chain:         p.Chain,
		Amount:        p.Amount,
		Token:         p.Token,
		Status:        p.Status,
		Confirmations: p.Confirmations,
		FailureReason: p.FailureReason,
		ConfirmedAt:   p.ConfirmedAt,
		LastCheckedAt: p.LastCheckedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func FromDataModel(m *paymentDatamodel.Payment) *Payment {
	return &Payment{
		ID:            m.ID,
		PaymentLinkID: m.PaymentLinkID,
		MerchantID:    m.MerchantID,
		TxSignature:   m.TxSignature,
		Chain:         m.Chain,
		Amount:        m.Amount,
		Token:         m.Token,
		Status:        m.Status,
		Confirmations: m.Confirmations,
		FailureReason: m.FailureReason,
		ConfirmedAt:   m.ConfirmedAt,
		LastCheckedAt: m.LastCheckedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func eventData(p *Payment) events.PaymentEventData {
	return events.PaymentEventData{
		PaymentID:     p.ID,
		PaymentLinkID: p.PaymentLinkID,
		MerchantID:    p.MerchantID,
		TxSignature:   p.TxSignature,
		Chain:         p.Chain,
		Amount:        p.Amount.String(),
		Token:         p.Token,
		Status:        p.Status,
		Confirmations: p.Confirmations,
	}
}
