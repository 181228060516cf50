package merchant

import (
	"errors"
	"time"

	merchantDatamodel "github.com/frahmantamala/paylink/internal/core/datamodel/merchant"
)

// Merchant is the owner of payment links and dashboard sessions. The full
// account system lives elsewhere; this is the directory view.
type Merchant struct {
	ID         string    `json:"id"`
	Identifier string    `json:"identifier"`
	Name       string    `json:"name"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var (
	ErrNotFound          = errors.New("merchant not found")
	ErrDuplicateIdentity = errors.New("merchant identifier already taken")
)

func ToDataModel(m *Merchant) *merchantDatamodel.Merchant {
	return &merchantDatamodel.Merchant{
		ID:         m.ID,
		Identifier: m.Identifier,
		Name:       m.Name,
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func FromDataModel(m *merchantDatamodel.Merchant) *Merchant {
	return &Merchant{
		ID:         m.ID,
		Identifier: m.Identifier,
		Name:       m.Name,
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
