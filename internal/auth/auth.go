package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleMerchant  = "merchant"
	RoleDashboard = "dashboard"
)

// TokenGenerator mints and validates the RS256 tokens used by the API.
type TokenGenerator interface {
	GenerateMerchantToken(merchantID string) (token string, expiresAt time.Time, err error)
	GenerateDashboardToken(merchantID, paymentLinkID, sessionID string, expiresAt time.Time) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims represents JWT token claims. Subject is the merchant id.
// Dashboard tokens additionally bind a single payment link and session.
type Claims struct {
	Role          string `json:"role"`
	PaymentLinkID string `json:"payment_link_id,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) MerchantID() string {
	return c.Subject
}

func (c *Claims) IsDashboard() bool {
	return c.Role == RoleDashboard && c.PaymentLinkID != "" && c.SessionID != ""
}
