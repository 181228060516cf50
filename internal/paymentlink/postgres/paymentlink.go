package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	linkDatamodel "github.com/frahmantamala/paylink/internal/core/datamodel/paymentlink"
	"github.com/frahmantamala/paylink/internal/paymentlink"
	"github.com/frahmantamala/paylink/pkg/database"
)

type PaymentLinkRepository struct {
	db *gorm.DB
}

func NewPaymentLinkRepository(db *gorm.DB) *PaymentLinkRepository {
	return &PaymentLinkRepository{db: db}
}

func (r *PaymentLinkRepository) Create(ctx context.Context, l *paymentlink.Link) error {
	model := paymentlink.ToDataModel(l)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return paymentlink.ErrDuplicateCode
		}
		return err
	}
	l.CreatedAt = model.CreatedAt
	l.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *PaymentLinkRepository) GetByCode(ctx context.Context, code string) (*paymentlink.Link, error) {
	var model linkDatamodel.PaymentLink
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, paymentlink.ErrNotFound
		}
		return nil, err
	}
	return paymentlink.FromDataModel(&model), nil
}

func (r *PaymentLinkRepository) GetByID(ctx context.Context, id string) (*paymentlink.Link, error) {
	var model linkDatamodel.PaymentLink
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, paymentlink.ErrNotFound
		}
		return nil, err
	}
	return paymentlink.FromDataModel(&model), nil
}

// IncrementPaymentCount performs the increment in SQL so concurrent payments
// on a reusable link never lose updates.
func (r *PaymentLinkRepository) IncrementPaymentCount(ctx context.Context, code string, paidAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&linkDatamodel.PaymentLink{}).
		Where("code = ?", code).
		UpdateColumns(map[string]interface{}{
			"payment_count": gorm.Expr("payment_count + ?", 1),
			"last_paid_at":  paidAt,
			"updated_at":    paidAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return paymentlink.ErrNotFound
	}
	return nil
}

func (r *PaymentLinkRepository) SetActive(ctx context.Context, id string, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&linkDatamodel.PaymentLink{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return paymentlink.ErrNotFound
	}
	return nil
}
