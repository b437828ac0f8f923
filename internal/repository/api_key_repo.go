package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/visionflow_server/internal/model"
)

type APIKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *APIKeyRepository) WithTx(tx *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: tx}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *model.APIKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id int64) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// GetUsableByUser 用户当前可用的 key：is_active 且未过期
func (r *APIKeyRepository) GetUsableByUser(ctx context.Context, userID int64, now time.Time) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND expires_at > ?", userID, true, now).
		Order("id DESC").
		First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// GetUsableByKey 按密钥查找可用的 key
func (r *APIKeyRepository) GetUsableByKey(ctx context.Context, secret string, now time.Time) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.WithContext(ctx).
		Where("secret = ? AND is_active = ? AND expires_at > ?", secret, true, now).
		First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// DeactivateActiveByUser 停用用户当前所有 is_active 的 key
func (r *APIKeyRepository) DeactivateActiveByUser(ctx context.Context, userID int64, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.APIKey{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *APIKeyRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.APIKey{}).
		Where("is_active = ? AND expires_at <= ?", true, now).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}
