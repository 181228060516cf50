package dashboard

import (
	"errors"
	"time"

	dashboardDatamodel "github.com/frahmantamala/paylink/internal/core/datamodel/dashboard"
)

// Session is one issued set of dashboard credentials, bound to a single
// payment link.
type Session struct {
	ID            string
	MerchantID    string
	PaymentLinkID string
	PasswordHash  string
	ExpiresAt     time.Time
	IsUsed        bool
	IsRevoked     bool
	LastUsedAt    *time.Time
	IPAddress     *string
	UserAgent     *string
	CreatedAt     time.Time
}

// IsValidAt mirrors the login eligibility rule: not revoked and expiring
// strictly after now.
func (s *Session) IsValidAt(now time.Time) bool {
	return !s.IsRevoked && s.ExpiresAt.After(now)
}

// Credentials is returned once by Issue. The plaintext password is never
// stored.
type Credentials struct {
	Identifier        string    `json:"identifier"`
	TemporaryPassword string    `json:"temporary_password"`
	PaymentLinkID     string    `json:"payment_link_id"`
	ExpiresAt         time.Time `json:"expires_at"`
}

type LoginResult struct {
	AccessToken   string    `json:"access_token"`
	TokenType     string    `json:"token_type"`
	PaymentLinkID string    `json:"payment_link_id"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// LoginAttempt carries the optional client metadata recorded on success.
type LoginAttempt struct {
	Identifier string
	Password   string
	IPAddress  string
	UserAgent  string
}

var ErrSessionNotFound = errors.New("dashboard session not found")

func ToDataModel(s *Session) *dashboardDatamodel.Session {
	return &dashboardDatamodel.Session{
		ID:            s.ID,
		MerchantID:    s.MerchantID,
		PaymentLinkID: s.PaymentLinkID,
		PasswordHash:  s.PasswordHash,
		ExpiresAt:     s.ExpiresAt,
		IsUsed:        s.IsUsed,
		IsRevoked:     s.IsRevoked,
		LastUsedAt:    s.LastUsedAt,
		IPAddress:     s.IPAddress,
		UserAgent:     s.UserAgent,
		CreatedAt:     s.CreatedAt,
	}
}

func FromDataModel(m *dashboardDatamodel.Session) *Session {
	return &Session{
		ID:            m.ID,
		MerchantID:    m.MerchantID,
		PaymentLinkID: m.PaymentLinkID,
		PasswordHash:  m.PasswordHash,
		ExpiresAt:     m.ExpiresAt,
		IsUsed:        m.IsUsed,
		IsRevoked:     m.IsRevoked,
		LastUsedAt:    m.LastUsedAt,
		IPAddress:     m.IPAddress,
		UserAgent:     m.UserAgent,
		CreatedAt:     m.CreatedAt,
	}
}
