package merchant

import "time"

type Merchant struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Identifier string    `gorm:"column:identifier;uniqueIndex;not null"`
	Name       string    `gorm:"column:name;not null"`
	IsActive   bool      `gorm:"column:is_active;not null"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}
