package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	dashboardDatamodel "github.com/frahmantamala/paylink/internal/core/datamodel/dashboard"
	"github.com/frahmantamala/paylink/internal/dashboard"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *dashboard.Session) error {
	model := dashboard.ToDataModel(s)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	s.CreatedAt = model.CreatedAt
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*dashboard.Session, error) {
	var model dashboardDatamodel.Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dashboard.ErrSessionNotFound
		}
		return nil, err
	}
	return dashboard.FromDataModel(&model), nil
}

// FindMostRecentValid picks exactly one session: the newest by created_at
// among those not revoked and expiring strictly after now.
func (r *SessionRepository) FindMostRecentValid(ctx context.Context, merchantID string, now time.Time) (*dashboard.Session, error) {
	var model dashboardDatamodel.Session
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND expires_at > ? AND is_revoked = ?", merchantID, now, false).
		Order("created_at DESC").
		Limit(1).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dashboard.ErrSessionNotFound
		}
		return nil, err
	}
	return dashboard.FromDataModel(&model), nil
}

func (r *SessionRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time, ipAddress, userAgent *string) error {
	updates := map[string]interface{}{
		"is_used":      true,
		"last_used_at": usedAt,
	}
	if ipAddress != nil {
		updates["ip_address"] = *ipAddress
	}
	if userAgent != nil {
		updates["user_agent"] = *userAgent
	}

	result := r.db.WithContext(ctx).
		Model(&dashboardDatamodel.Session{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return dashboard.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) RevokeAllValid(ctx context.Context, merchantID string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&dashboardDatamodel.Session{}).
		Where("merchant_id = ? AND expires_at > ? AND is_revoked = ?", merchantID, now, false).
		Update("is_revoked", true)
	return result.RowsAffected, result.Error
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", before).
		Delete(&dashboardDatamodel.Session{})
	return result.RowsAffected, result.Error
}
