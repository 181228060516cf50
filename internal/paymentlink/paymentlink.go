package paymentlink

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	linkDatamodel "github.com/frahmantamala/paylink/internal/core/datamodel/paymentlink"
)

type Link struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	MerchantID   string          `json:"merchant_id"`
	Title        string          `json:"title,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Token        string          `json:"token"`
	Chain        string          `json:"chain"`
	IsReusable   bool            `json:"is_reusable"`
	IsActive     bool            `json:"is_active"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	PaymentCount int64           `json:"payment_count"`
	LastPaidAt   *time.Time      `json:"last_paid_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsExpired reports whether the expiry has been reached at now.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// IsSpent reports whether a one-time link already has a payment attributed.
func (l *Link) IsSpent() bool {
	return !l.IsReusable && l.PaymentCount > 0
}

var (
	ErrNotFound      = errors.New("payment link not found")
	ErrDuplicateCode = errors.New("payment link code already exists")
)

func ToDataModel(l *Link) *linkDatamodel.PaymentLink {
	return &linkDatamodel.PaymentLink{
		ID:           l.ID,
		Code:         l.Code,
		MerchantID:   l.MerchantID,
		Title:        l.Title,
		Amount:       l.Amount,
		Token:        l.Token,
		Chain:        l.Chain,
		IsReusable:   l.IsReusable,
		IsActive:     l.IsActive,
		ExpiresAt:    l.ExpiresAt,
		PaymentCount: l.PaymentCount,
		LastPaidAt:   l.LastPaidAt,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

func FromDataModel(m *linkDatamodel.PaymentLink) *Link {
	return &Link{
		ID:           m.ID,
		Code:         m.Code,
		MerchantID:   m.MerchantID,
		Title:        m.Title,
		Amount:       m.Amount,
		Token:        m.Token,
		Chain:        m.Chain,
		IsReusable:   m.IsReusable,
		IsActive:     m.IsActive,
		ExpiresAt:    m.ExpiresAt,
		PaymentCount: m.PaymentCount,
		LastPaidAt:   m.LastPaidAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
