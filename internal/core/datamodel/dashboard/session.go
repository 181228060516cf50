package dashboard

import "time"

// Session is a dashboard capability scoped to exactly one payment link.
// The expires_at index serves expiry sweeping; the compound index serves
// the most-recent-valid-session lookup.
type Session struct {
	ID            string     `gorm:"primaryKey;size:36"`
	MerchantID    string     `gorm:"column:merchant_id;size:36;not null;index:idx_dashboard_sessions_lookup,priority:1"`
	PaymentLinkID string     `gorm:"column:payment_link_id;size:36;not null;index:idx_dashboard_sessions_lookup,priority:2"`
	PasswordHash  string     `gorm:"column:password_hash;not null"`
	ExpiresAt     time.Time  `gorm:"column:expires_at;not null;index:idx_dashboard_sessions_expires_at;index:idx_dashboard_sessions_lookup,priority:3,sort:desc"`
	IsUsed        bool       `gorm:"column:is_used;not null"`
	IsRevoked     bool       `gorm:"column:is_revoked;not null"`
	LastUsedAt    *time.Time `gorm:"column:last_used_at"`
	IPAddress     *string    `gorm:"column:ip_address"`
	UserAgent     *string    `gorm:"column:user_agent"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
}

func (Session) TableName() string {
	return "dashboard_sessions"
}
