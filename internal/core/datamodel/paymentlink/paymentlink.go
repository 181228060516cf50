package paymentlink

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentLink struct {
	ID           string          `gorm:"primaryKey;size:36"`
	Code         string          `gorm:"column:code;size:16;uniqueIndex;not null"`
	MerchantID   string          `gorm:"column:merchant_id;size:36;index;not null"`
	Title        string          `gorm:"column:title"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(36,18);not null"`
	Token        string          `gorm:"column:token;not null"`
	Chain        string          `gorm:"column:chain;not null"`
	IsReusable   bool            `gorm:"column:is_reusable;not null"`
	IsActive     bool            `gorm:"column:is_active;not null"`
	ExpiresAt    *time.Time      `gorm:"column:expires_at"`
	PaymentCount int64           `gorm:"column:payment_count;not null;default:0"`
	LastPaidAt   *time.Time      `gorm:"column:last_paid_at"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at"`
}
