package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/visionflow_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetActiveByUser 生效中的订阅：is_active、ACTIVE 且 end_at > now
func (r *SubscriptionRepository) GetActiveByUser(ctx context.Context, userID int64, now time.Time) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND status = ? AND end_at > ?",
			userID, true, model.SubscriptionStatusActive, now).
		Order("id DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListActiveByUsers 批量获取用户的生效订阅，按 user_id 索引
func (r *SubscriptionRepository) ListActiveByUsers(ctx context.Context, userIDs []int64, now time.Time) (map[int64]model.Subscription, error) {
	result := make(map[int64]model.Subscription, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	var subs []model.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND is_active = ? AND status = ? AND end_at > ?",
			userIDs, true, model.SubscriptionStatusActive, now).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	for _, s := range subs {
		result[s.UserID] = s
	}
	return result, nil
}

// DeactivateActiveByUser 停用用户当前所有 is_active 的订阅
func (r *SubscriptionRepository) DeactivateActiveByUser(ctx context.Context, userID int64, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"status":     model.SubscriptionStatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// RollOver 跨天重置并消费当天第一次：仅当 last_usage_date 为空或早于 dayStart 时生效
func (r *SubscriptionRepository) RollOver(ctx context.Context, id int64, dayStart, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ? AND is_active = ? AND status = ? AND end_at > ?", id, true, model.SubscriptionStatusActive, now).
		Where("daily_limit > 0 AND (last_usage_date IS NULL OR last_usage_date < ?)", dayStart).
		Updates(map[string]interface{}{
			"daily_used_today": 1,
			"last_usage_date":  now,
			"updated_at":       now,
		})
	return result.RowsAffected == 1, result.Error
}

// ConsumeSameDay 当天未达上限时原子加一，比较与写入由数据库在同一条语句内完成
func (r *SubscriptionRepository) ConsumeSameDay(ctx context.Context, id int64, dayStart, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ? AND is_active = ? AND status = ? AND end_at > ?", id, true, model.SubscriptionStatusActive, now).
		Where("last_usage_date >= ? AND daily_used_today < daily_limit", dayStart).
		Updates(map[string]interface{}{
			"daily_used_today": gorm.Expr("daily_used_today + 1"),
			"last_usage_date":  now,
			"updated_at":       now,
		})
	return result.RowsAffected == 1, result.Error
}

// ExpireDue 将已到期但仍标记为生效的订阅置为 EXPIRED
func (r *SubscriptionRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("is_active = ? AND end_at <= ?", true, now).
		Updates(map[string]interface{}{
			"is_active":  false,
			"status":     model.SubscriptionStatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *SubscriptionRepository) CountActive(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("is_active = ? AND status = ? AND end_at > ?", true, model.SubscriptionStatusActive, now).
		Count(&count).Error
	return count, err
}
