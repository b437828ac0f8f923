package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/visionflow_server/internal/model"
	"github.com/qs3c/visionflow_server/internal/model/dto"
	"github.com/qs3c/visionflow_server/internal/repository"
)

type AdminService struct {
	userRepo      *repository.UserRepository
	orderRepo     *repository.OrderRepository
	subRepo       *repository.SubscriptionRepository
	detectionRepo *repository.DetectionRepository
	now           func() time.Time
}

func NewAdminService(
	userRepo *repository.UserRepository,
	orderRepo *repository.OrderRepository,
	subRepo *repository.SubscriptionRepository,
	detectionRepo *repository.DetectionRepository,
) *AdminService {
	return &AdminService{
		userRepo:      userRepo,
		orderRepo:     orderRepo,
		subRepo:       subRepo,
		detectionRepo: detectionRepo,
		now:           utcNow,
	}
}

// Stats 后台概览
func (s *AdminService) Stats(ctx context.Context) (*dto.AdminStats, error) {
	users, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.orderRepo.CountByStatus(ctx, model.OrderStatusPending)
	if err != nil {
		return nil, err
	}
	active, err := s.subRepo.CountActive(ctx, s.now())
	if err != nil {
		return nil, err
	}
	revenue, err := s.orderRepo.SumApprovedAmount(ctx)
	if err != nil {
		return nil, err
	}
	detections, err := s.detectionRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.AdminStats{
		TotalUsers:          users,
		PendingOrders:       pending,
		ActiveSubscriptions: active,
		TotalRevenue:        revenue,
		TotalDetections:     detections,
	}, nil
}

// ListUsers 用户列表，附带识别次数与生效订阅的概况
func (s *AdminService) ListUsers(ctx context.Context, q *dto.PageQuery) ([]dto.AdminUserInfo, int64, error) {
	q.Normalize()

	users, total, err := s.userRepo.List(ctx, q.Page, q.PageSize)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	subs, err := s.subRepo.ListActiveByUsers(ctx, ids, now)
	if err != nil {
		return nil, 0, err
	}
	detections, err := s.detectionRepo.CountByUsers(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	result := make([]dto.AdminUserInfo, 0, len(users))
	for _, u := range users {
		info := dto.AdminUserInfo{
			ID:        u.ID,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Role:      u.Role,
			CreatedAt: formatTime(u.CreatedAt),

			TotalDetections: detections[u.ID],
		}
		if sub, ok := subs[u.ID]; ok {
			limit := sub.DailyLimit
			used := usedToday(sub.DailyUsedToday, sub.LastUsageDate, now)
			info.HasActiveSubscription = true
			info.SubscriptionPlan = sub.PlanName
			info.DailyLimit = &limit
			info.DailyUsed = &used
		}
		result = append(result, info)
	}
	return result, total, nil
}

// UpdateRole 修改角色，管理员不能取消自己的管理员权限
func (s *AdminService) UpdateRole(ctx context.Context, operatorID, userID int64, role string) error {
	if role != model.RoleUser && role != model.RoleAdmin {
		return ErrInvalidRole
	}
	if operatorID == userID && role != model.RoleAdmin {
		return ErrCannotDemoteSelf
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		return err
	}

	zap.L().Info("user role updated",
		zap.Int64("operator_id", operatorID),
		zap.Int64("user_id", userID),
		zap.String("role", role),
	)
	return nil
}
