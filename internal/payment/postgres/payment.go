package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	paymentDatamodel "github.com/frahmantamala/paylink/internal/core/datamodel/payment"
	paymentpkg "github.com/frahmantamala/paylink/internal/payment"
	"github.com/frahmantamala/paylink/pkg/database"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{
		db: db,
	}
}

// InsertUnique inserts without any prior existence check; the unique index
// on (tx_signature, chain) decides the winner.
func (r *PaymentRepository) InsertUnique(ctx context.Context, p *paymentpkg.Payment) error {
	model := paymentpkg.ToDataModel(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return paymentpkg.ErrDuplicate
		}
		return err
	}
	p.CreatedAt = model.CreatedAt
	p.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *PaymentRepository) FindByCompoundKey(ctx context.Context, txSignature, chain string) (*paymentpkg.Payment, error) {
	var model paymentDatamodel.Payment
	err := r.db.WithContext(ctx).
		Where("tx_signature = ? AND chain = ?", txSignature, chain).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, paymentpkg.ErrNotFound
		}
		return nil, err
	}
	return paymentpkg.FromDataModel(&model), nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*paymentpkg.Payment, error) {
	var model paymentDatamodel.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, paymentpkg.ErrNotFound
		}
		return nil, err
	}
	return paymentpkg.FromDataModel(&model), nil
}

func (r *PaymentRepository) ListByLink(ctx context.Context, paymentLinkID string) ([]*paymentpkg.Payment, error) {
	var models []*paymentDatamodel.Payment
	err := r.db.WithContext(ctx).
		Where("payment_link_id = ?", paymentLinkID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromDataModels(models), nil
}

// ListPending returns the pending payments checked least recently first, so a
// full batch of unresolvable rows cannot starve the ones behind it.
func (r *PaymentRepository) ListPending(ctx context.Context, limit int) ([]*paymentpkg.Payment, error) {
	var models []*paymentDatamodel.Payment
	err := r.db.WithContext(ctx).
		Where("status = ?", paymentDatamodel.StatusPending).
		Order("COALESCE(last_checked_at, created_at) ASC, created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromDataModels(models), nil
}

// MarkConfirmed only touches rows still pending so status never regresses.
func (r *PaymentRepository) MarkConfirmed(ctx context.Context, id string, confirmations int64, confirmedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&paymentDatamodel.Payment{}).
		Where("id = ? AND status = ?", id, paymentDatamodel.StatusPending).
		Updates(map[string]interface{}{
			"status":        paymentDatamodel.StatusConfirmed,
			"confirmations": confirmations,
			"confirmed_at":  confirmedAt,
			"updated_at":    confirmedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&paymentDatamodel.Payment{}).
		Where("id = ? AND status = ?", id, paymentDatamodel.StatusPending).
		Updates(map[string]interface{}{
			"status":         paymentDatamodel.StatusFailed,
			"failure_reason": reason,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *PaymentRepository) MarkChecked(ctx context.Context, id string, checkedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&paymentDatamodel.Payment{}).
		Where("id = ? AND status = ?", id, paymentDatamodel.StatusPending).
		UpdateColumn("last_checked_at", checkedAt).Error
}

func fromDataModels(models []*paymentDatamodel.Payment) []*paymentpkg.Payment {
	out := make([]*paymentpkg.Payment, 0, len(models))
	for _, m := range models {
		out = append(out, paymentpkg.FromDataModel(m))
	}
	return out
}
