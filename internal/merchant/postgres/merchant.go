package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	merchantDatamodel "github.com/frahmantamala/paylink/internal/core/datamodel/merchant"
	"github.com/frahmantamala/paylink/internal/merchant"
	"github.com/frahmantamala/paylink/pkg/database"
)

type MerchantRepository struct {
	db *gorm.DB
}

func NewMerchantRepository(db *gorm.DB) *MerchantRepository {
	return &MerchantRepository{db: db}
}

func (r *MerchantRepository) Create(ctx context.Context, m *merchant.Merchant) error {
	model := merchant.ToDataModel(m)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return merchant.ErrDuplicateIdentity
		}
		return err
	}
	m.CreatedAt = model.CreatedAt
	m.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *MerchantRepository) GetByID(ctx context.Context, id string) (*merchant.Merchant, error) {
	var model merchantDatamodel.Merchant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, merchant.ErrNotFound
		}
		return nil, err
	}
	return merchant.FromDataModel(&model), nil
}

func (r *MerchantRepository) GetByIdentifier(ctx context.Context, identifier string) (*merchant.Merchant, error) {
	var model merchantDatamodel.Merchant
	if err := r.db.WithContext(ctx).Where("identifier = ?", identifier).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, merchant.ErrNotFound
		}
		return nil, err
	}
	return merchant.FromDataModel(&model), nil
}
