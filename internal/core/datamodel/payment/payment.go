package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// Payment is keyed for idempotency by the compound unique index on
// (tx_signature, chain).
type Payment struct {
	ID            string          `gorm:"primaryKey;size:36"`
	PaymentLinkID string          `gorm:"column:payment_link_id;size:36;index;not null"`
	MerchantID    string          `gorm:"column:merchant_id;size:36;index;not null"`
	TxSignature   string          `gorm:"column:tx_signature;not null;uniqueIndex:idx_payments_tx_signature_chain,priority:1"`
	Chain         string          `gorm:"column:chain;not null;uniqueIndex:idx_payments_tx_signature_chain,priority:2"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(36,18);not null"`
	Token         string          `gorm:"column:token;not null"`
	Status        string          `gorm:"column:status;not null;default:pending;index"`
	Confirmations int64           `gorm:"column:confirmations;not null;default:0"`
	FailureReason *string         `gorm:"column:failure_reason"`
	ConfirmedAt   *time.Time      `gorm:"column:confirmed_at"`
	LastCheckedAt *time.Time      `gorm:"column:last_checked_at"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}
