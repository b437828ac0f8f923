package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/visionflow_server/internal/model/dto"
	"github.com/qs3c/visionflow_server/internal/repository"
)

// QuotaReason 拒绝原因。没有订阅是一种结果而不是错误
type QuotaReason string

const (
	ReasonNoSubscription    QuotaReason = "NO_SUBSCRIPTION"
	ReasonDailyLimitReached QuotaReason = "DAILY_LIMIT_REACHED"
	ReasonUnavailable       QuotaReason = "QUOTA_UNAVAILABLE"
)

// QuotaDecision 一次计量调用的结果
type QuotaDecision struct {
	Allowed        bool
	Used           int
	Limit          int
	Reason         QuotaReason
	SubscriptionID int64
}

type QuotaService struct {
	db      *gorm.DB
	subRepo *repository.SubscriptionRepository
	now     func() time.Time
	// afterLoad 在读取订阅之后、写入计数之前执行，测试用
	afterLoad func(tx *gorm.DB) error
}

func NewQuotaService(db *gorm.DB, subRepo *repository.SubscriptionRepository) *QuotaService {
	return &QuotaService{
		db:      db,
		subRepo: subRepo,
		now:     utcNow,
	}
}

// CheckAndConsume 判断是否允许本次调用并推进当日计数。
// 跨天重置与同日加一都是带条件的 UPDATE，由数据库完成比较与写入，
// 并发调用之间不会丢失或重复计数。存储出错时拒绝。
func (s *QuotaService) CheckAndConsume(ctx context.Context, userID int64) (*QuotaDecision, error) {
	now := s.now()
	dayStart := startOfDay(now)

	var decision *QuotaDecision
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subs := s.subRepo.WithTx(tx)

		sub, err := subs.GetActiveByUser(ctx, userID, now)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				decision = &QuotaDecision{Reason: ReasonNoSubscription}
				return nil
			}
			return err
		}
		if s.afterLoad != nil {
			if err := s.afterLoad(tx); err != nil {
				return err
			}
		}

		rolled, err := subs.RollOver(ctx, sub.ID, dayStart, now)
		if err != nil {
			return err
		}
		if rolled {
			decision = &QuotaDecision{Allowed: true, Used: 1, Limit: sub.DailyLimit, SubscriptionID: sub.ID}
			return nil
		}

		consumed, err := subs.ConsumeSameDay(ctx, sub.ID, dayStart, now)
		if err != nil {
			return err
		}

		current, err := subs.GetByID(ctx, sub.ID)
		if err != nil {
			return err
		}

		switch {
		case consumed:
			decision = &QuotaDecision{Allowed: true, Used: current.DailyUsedToday, Limit: current.DailyLimit, SubscriptionID: current.ID}
		case !current.IsLive(now):
			// 读取之后被过期清理或新的审批停用
			decision = &QuotaDecision{Reason: ReasonNoSubscription}
		default:
			decision = &QuotaDecision{
				Used:           current.DailyUsedToday,
				Limit:          current.DailyLimit,
				Reason:         ReasonDailyLimitReached,
				SubscriptionID: current.ID,
			}
		}
		return nil
	})
	if err != nil {
		zap.L().Error("quota check failed", zap.Int64("user_id", userID), zap.Error(err))
		return &QuotaDecision{Reason: ReasonUnavailable}, fmt.Errorf("quota check for user %d: %w", userID, err)
	}

	return decision, nil
}

// GetQuotaInfo 只读视图，跨天时按 0 展示
func (s *QuotaService) GetQuotaInfo(ctx context.Context, userID int64) (*dto.QuotaInfo, error) {
	now := s.now()

	sub, err := s.subRepo.GetActiveByUser(ctx, userID, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, err
	}

	used := usedToday(sub.DailyUsedToday, sub.LastUsageDate, now)
	remain := sub.DailyLimit - used
	if remain < 0 {
		remain = 0
	}

	return &dto.QuotaInfo{
		PlanName:    sub.PlanName,
		DailyLimit:  sub.DailyLimit,
		DailyUsed:   used,
		DailyRemain: remain,
		ResetAt:     formatTime(startOfDay(now).AddDate(0, 0, 1)),
	}, nil
}

// usedToday 最后使用早于今天时计数视为已重置
func usedToday(used int, lastUsage *time.Time, now time.Time) int {
	if lastUsage == nil || lastUsage.Before(startOfDay(now)) {
		return 0
	}
	return used
}
