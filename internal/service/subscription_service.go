package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/visionflow_server/config"
	"github.com/qs3c/visionflow_server/internal/model"
	"github.com/qs3c/visionflow_server/internal/model/dto"
	"github.com/qs3c/visionflow_server/internal/pkg/apikey"
	"github.com/qs3c/visionflow_server/internal/repository"
)

type SubscriptionService struct {
	db      *gorm.DB
	subRepo *repository.SubscriptionRepository
	keyRepo *repository.APIKeyRepository
	catalog *PlanCatalog
	prefix  string
	now     func() time.Time
}

func NewSubscriptionService(
	db *gorm.DB,
	subRepo *repository.SubscriptionRepository,
	keyRepo *repository.APIKeyRepository,
	catalog *PlanCatalog,
	cfg config.SubscriptionConfig,
) *SubscriptionService {
	prefix := cfg.APIKeyPrefix
	if prefix == "" {
		prefix = config.DefaultAPIKeyPrefix
	}
	return &SubscriptionService{
		db:      db,
		subRepo: subRepo,
		keyRepo: keyRepo,
		catalog: catalog,
		prefix:  prefix,
		now:     utcNow,
	}
}

// ListPlans 套餐列表
func (s *SubscriptionService) ListPlans() []dto.PlanInfo {
	plans := s.catalog.List()
	result := make([]dto.PlanInfo, 0, len(plans))
	for _, p := range plans {
		result = append(result, dto.PlanInfo{
			Name:        string(p.Name),
			Label:       p.Label,
			DailyLimit:  p.DailyQuota,
			Price:       p.Price,
			Currency:    s.catalog.Currency(),
			Description: p.Description,
		})
	}
	return result
}

// Status 当前订阅概况，没有订阅时返回 HasActiveSubscription=false
func (s *SubscriptionService) Status(ctx context.Context, userID int64) (*dto.SubscriptionStatus, error) {
	now := s.now()

	sub, err := s.subRepo.GetActiveByUser(ctx, userID, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.SubscriptionStatus{}, nil
		}
		return nil, err
	}

	status := &dto.SubscriptionStatus{
		HasActiveSubscription: true,
		Status:                sub.Status,
		PlanName:              sub.PlanName,
		DailyLimit:            sub.DailyLimit,
		DailyUsed:             usedToday(sub.DailyUsedToday, sub.LastUsageDate, now),
		StartAt:               formatTime(sub.StartAt),
		EndAt:                 formatTime(sub.EndAt),
	}

	key, err := s.keyRepo.GetUsableByUser(ctx, userID, now)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if key != nil {
		status.APIKeyHint = apikey.Mask(key.Key, s.prefix)
	}

	return status, nil
}

// CurrentAPIKey 所有者读取当前可用的 key
func (s *SubscriptionService) CurrentAPIKey(ctx context.Context, userID int64) (*dto.APIKeyInfo, error) {
	key, err := s.keyRepo.GetUsableByUser(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveAPIKey
		}
		return nil, err
	}

	return &dto.APIKeyInfo{
		Key:       key.Key,
		ExpiresAt: formatTime(key.ExpiresAt),
	}, nil
}

// AuthenticateAPIKey 校验调用方提供的 key，返回其所有者的 key 记录
func (s *SubscriptionService) AuthenticateAPIKey(ctx context.Context, secret string) (*model.APIKey, error) {
	secret = strings.TrimSpace(secret)
	if !apikey.HasPrefix(secret, s.prefix) {
		return nil, ErrInvalidAPIKey
	}

	key, err := s.keyRepo.GetUsableByKey(ctx, secret, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, err
	}
	return key, nil
}

// ExpireDue 停用已到期的订阅与 key
func (s *SubscriptionService) ExpireDue(ctx context.Context) (int64, int64, error) {
	now := s.now()

	var subs, keys int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if subs, err = s.subRepo.WithTx(tx).ExpireDue(ctx, now); err != nil {
			return err
		}
		keys, err = s.keyRepo.WithTx(tx).ExpireDue(ctx, now)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	return subs, keys, nil
}
