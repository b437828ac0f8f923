package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/visionflow_server/config"
	"github.com/qs3c/visionflow_server/internal/model"
	"github.com/qs3c/visionflow_server/internal/model/dto"
	"github.com/qs3c/visionflow_server/internal/pkg/apikey"
	"github.com/qs3c/visionflow_server/internal/pkg/lock"
	"github.com/qs3c/visionflow_server/internal/pkg/logger"
	"github.com/qs3c/visionflow_server/internal/pkg/pubsub"
	"github.com/qs3c/visionflow_server/internal/repository"
)

const reviewLockScope = "review_lock"

// ReviewLocker 按用户串行化审核
type ReviewLocker interface {
	LockUser(ctx context.Context, scope string, userID int64) (func(), error)
}

// OrderEventPublisher 审核结果广播
type OrderEventPublisher interface {
	PublishOrderReviewed(ctx context.Context, evt *pubsub.OrderReviewedEvent) error
}

// ReviewMailer 审核结果邮件
type ReviewMailer interface {
	Enabled() bool
	SendOrderApproved(to, name, planLabel string, endAt time.Time) error
	SendOrderRejected(to, name, planLabel, adminNote string) error
}

// Approval 审批产生的订阅与 key，key 只交给所有者，不返回给管理员
type Approval struct {
	Order        *model.PaymentOrder
	Subscription *model.Subscription
	APIKey       *model.APIKey
}

type OrderService struct {
	db        *gorm.DB
	orderRepo *repository.OrderRepository
	subRepo   *repository.SubscriptionRepository
	keyRepo   *repository.APIKeyRepository
	userRepo  *repository.UserRepository
	catalog   *PlanCatalog
	duration  int
	keyPrefix string

	locker    ReviewLocker
	publisher OrderEventPublisher
	mailer    ReviewMailer

	now func() time.Time
	// faultAfterSubscription 在订阅创建之后、订单更新之前执行，测试用
	faultAfterSubscription func() error
}

func NewOrderService(
	db *gorm.DB,
	orderRepo *repository.OrderRepository,
	subRepo *repository.SubscriptionRepository,
	keyRepo *repository.APIKeyRepository,
	userRepo *repository.UserRepository,
	catalog *PlanCatalog,
	cfg config.SubscriptionConfig,
) *OrderService {
	duration := cfg.DurationDays
	if duration <= 0 {
		duration = config.DefaultDurationDays
	}
	prefix := cfg.APIKeyPrefix
	if prefix == "" {
		prefix = config.DefaultAPIKeyPrefix
	}

	return &OrderService{
		db:        db,
		orderRepo: orderRepo,
		subRepo:   subRepo,
		keyRepo:   keyRepo,
		userRepo:  userRepo,
		catalog:   catalog,
		duration:  duration,
		keyPrefix: prefix,
		now:       utcNow,
	}
}

// WithLocker 配置 Redis 时启用按用户的审核锁
func (s *OrderService) WithLocker(l ReviewLocker) *OrderService {
	s.locker = l
	return s
}

func (s *OrderService) WithPublisher(p OrderEventPublisher) *OrderService {
	s.publisher = p
	return s
}

func (s *OrderService) WithMailer(m ReviewMailer) *OrderService {
	s.mailer = m
	return s
}

// Submit 创建待审核订单，除此之外没有任何副作用
func (s *OrderService) Submit(ctx context.Context, userID int64, req *dto.CreateOrderRequest) (*model.PaymentOrder, error) {
	plan, ok := s.catalog.Lookup(req.PlanName)
	if !ok {
		return nil, fmt.Errorf("%w: choose from %s", ErrInvalidPlan, strings.Join(s.catalog.Names(), ", "))
	}

	txRef := strings.TrimSpace(req.TransactionRef)
	paymentRef := strings.TrimSpace(req.PaymentRef)
	if txRef == "" || paymentRef == "" || req.Amount <= 0 {
		return nil, ErrInvalidOrder
	}

	exists, err := s.orderRepo.ExistsByTransactionRef(ctx, txRef)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateTransaction
	}

	order := &model.PaymentOrder{
		UserID:         userID,
		PlanName:       string(plan.Name),
		Amount:         req.Amount,
		Currency:       s.catalog.Currency(),
		PaymentRef:     paymentRef,
		TransactionRef: txRef,
		UserNote:       strings.TrimSpace(req.UserNote),
		Status:         model.OrderStatusPending,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		// 并发提交同一交易号时由唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateTransaction
		}
		return nil, err
	}

	zap.L().Info("payment order submitted",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.String("plan", order.PlanName),
	)
	return order, nil
}

// ListMine 用户自己的订单，付款号码脱敏
func (s *OrderService) ListMine(ctx context.Context, userID int64) ([]dto.OrderInfo, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]dto.OrderInfo, 0, len(orders))
	for i := range orders {
		result = append(result, buildOrderInfo(&orders[i]))
	}
	return result, nil
}

// ListAll 管理后台订单列表
func (s *OrderService) ListAll(ctx context.Context, q *dto.AdminOrderQuery) ([]dto.AdminOrderInfo, int64, error) {
	q.Normalize()

	status := strings.ToUpper(strings.TrimSpace(q.Status))
	switch status {
	case "", model.OrderStatusPending, model.OrderStatusApproved, model.OrderStatusRejected:
	default:
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, status)
	}

	orders, total, err := s.orderRepo.List(ctx, status, q.Page, q.PageSize)
	if err != nil {
		return nil, 0, err
	}

	result := make([]dto.AdminOrderInfo, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		info := dto.AdminOrderInfo{
			OrderInfo: buildOrderInfo(o),
			UserID:    o.UserID,
		}
		// 管理员核对付款需要完整号码
		info.PaymentRef = o.PaymentRef
		if o.User != nil {
			info.UserEmail = o.User.Email
			info.UserName = o.User.FullName()
		}
		result = append(result, info)
	}
	return result, total, nil
}

// Approve 审批通过：停用旧订阅与 key，签发新 key 与新订阅，订单置为 APPROVED。
// 全部在一个事务内完成，任何一步失败都不留下可见的中间状态。
func (s *OrderService) Approve(ctx context.Context, orderID int64, adminNote string) (*Approval, error) {
	order, err := s.loadPending(ctx, orderID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockUser(ctx, order.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	limit, known := s.catalog.DailyLimitFor(order.PlanName)
	if !known {
		zap.L().Warn("plan no longer in catalog, using fallback limit",
			zap.Int64("order_id", orderID),
			zap.String("plan", order.PlanName),
			zap.Int("daily_limit", limit),
		)
	}

	secret, err := apikey.Generate(s.keyPrefix)
	if err != nil {
		return nil, err
	}

	now := s.now()
	endAt := now.AddDate(0, 0, s.duration)

	var approval *Approval
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orderRepo.WithTx(tx)
		subs := s.subRepo.WithTx(tx)
		keys := s.keyRepo.WithTx(tx)

		locked, err := s.lockPending(ctx, orders, orderID)
		if err != nil {
			return err
		}

		if _, err := subs.DeactivateActiveByUser(ctx, locked.UserID, now); err != nil {
			return fmt.Errorf("deactivate subscription: %w", err)
		}
		if _, err := keys.DeactivateActiveByUser(ctx, locked.UserID, now); err != nil {
			return fmt.Errorf("deactivate api key: %w", err)
		}

		key := &model.APIKey{
			UserID:    locked.UserID,
			Key:       secret,
			IsActive:  true,
			IssuedAt:  now,
			ExpiresAt: endAt,
		}
		if err := keys.Create(ctx, key); err != nil {
			return fmt.Errorf("create api key: %w", err)
		}

		sub := &model.Subscription{
			UserID:         locked.UserID,
			PlanName:       locked.PlanName,
			Status:         model.SubscriptionStatusActive,
			IsActive:       true,
			DailyLimit:     limit,
			DailyUsedToday: 0,
			StartAt:        now,
			EndAt:          endAt,
			APIKeyID:       &key.ID,
		}
		if err := subs.Create(ctx, sub); err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}

		if s.faultAfterSubscription != nil {
			if err := s.faultAfterSubscription(); err != nil {
				return err
			}
		}

		n, err := orders.MarkReviewed(ctx, orderID, model.OrderStatusApproved, adminNote, now, &sub.ID)
		if err != nil {
			return fmt.Errorf("mark order approved: %w", err)
		}
		if n == 0 {
			return ErrOrderAlreadyReviewed
		}

		locked.Status = model.OrderStatusApproved
		locked.AdminNote = adminNote
		locked.ReviewedAt = &now
		locked.SubscriptionID = &sub.ID
		approval = &Approval{Order: locked, Subscription: sub, APIKey: key}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("payment order approved",
		zap.Int64("order_id", orderID),
		zap.Int64("user_id", approval.Order.UserID),
		zap.Int64("subscription_id", approval.Subscription.ID),
		zap.String("api_key", logger.MaskAPIKey(secret)),
	)

	s.notify(ctx, approval.Order, &endAt)
	return approval, nil
}

// Reject 驳回订单，不影响用户现有订阅
func (s *OrderService) Reject(ctx context.Context, orderID int64, adminNote string) (*model.PaymentOrder, error) {
	order, err := s.loadPending(ctx, orderID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockUser(ctx, order.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()

	var rejected *model.PaymentOrder
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orderRepo.WithTx(tx)

		locked, err := s.lockPending(ctx, orders, orderID)
		if err != nil {
			return err
		}

		n, err := orders.MarkReviewed(ctx, orderID, model.OrderStatusRejected, adminNote, now, nil)
		if err != nil {
			return fmt.Errorf("mark order rejected: %w", err)
		}
		if n == 0 {
			return ErrOrderAlreadyReviewed
		}

		locked.Status = model.OrderStatusRejected
		locked.AdminNote = adminNote
		locked.ReviewedAt = &now
		rejected = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("payment order rejected",
		zap.Int64("order_id", orderID),
		zap.Int64("user_id", rejected.UserID),
	)

	s.notify(ctx, rejected, nil)
	return rejected, nil
}

// loadPending 事务外的快速检查，避免对已审核订单加锁
func (s *OrderService) loadPending(ctx context.Context, orderID int64) (*model.PaymentOrder, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !order.IsPending() {
		return nil, ErrOrderAlreadyReviewed
	}
	return order, nil
}

// lockPending 事务内加行锁重新读取，并发审核只有一个能通过
func (s *OrderService) lockPending(ctx context.Context, orders *repository.OrderRepository, orderID int64) (*model.PaymentOrder, error) {
	order, err := orders.GetByIDForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !order.IsPending() {
		return nil, ErrOrderAlreadyReviewed
	}
	return order, nil
}

func (s *OrderService) lockUser(ctx context.Context, userID int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	unlock, err := s.locker.LockUser(ctx, reviewLockScope, userID)
	if err != nil {
		if errors.Is(err, lock.ErrLockBusy) {
			return nil, ErrReviewInProgress
		}
		return nil, err
	}
	return unlock, nil
}

// notify 事务提交后的通知，失败只记录日志
func (s *OrderService) notify(ctx context.Context, order *model.PaymentOrder, endAt *time.Time) {
	if s.publisher != nil {
		evt := &pubsub.OrderReviewedEvent{
			UserID:    order.UserID,
			OrderID:   order.ID,
			Status:    order.Status,
			PlanName:  order.PlanName,
			AdminNote: order.AdminNote,
			EndAt:     endAt,
		}
		if err := s.publisher.PublishOrderReviewed(ctx, evt); err != nil {
			zap.L().Warn("failed to publish order event", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}

	if s.mailer == nil || !s.mailer.Enabled() {
		return
	}

	user, err := s.userRepo.GetByID(ctx, order.UserID)
	if err != nil {
		zap.L().Warn("failed to load user for review email", zap.Int64("order_id", order.ID), zap.Error(err))
		return
	}

	label := order.PlanName
	if plan, ok := s.catalog.Lookup(order.PlanName); ok {
		label = plan.Label
	}

	go func() {
		var err error
		if order.Status == model.OrderStatusApproved && endAt != nil {
			err = s.mailer.SendOrderApproved(user.Email, user.FullName(), label, *endAt)
		} else {
			err = s.mailer.SendOrderRejected(user.Email, user.FullName(), label, order.AdminNote)
		}
		if err != nil {
			zap.L().Warn("failed to send review email", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}()
}

func buildOrderInfo(o *model.PaymentOrder) dto.OrderInfo {
	return dto.OrderInfo{
		ID:             o.ID,
		PlanName:       o.PlanName,
		Amount:         o.Amount,
		Currency:       o.Currency,
		PaymentRef:     logger.MaskPaymentNumber(o.PaymentRef),
		TransactionRef: o.TransactionRef,
		Status:         o.Status,
		UserNote:       o.UserNote,
		AdminNote:      o.AdminNote,
		ReviewedAt:     formatTimePtr(o.ReviewedAt),
		CreatedAt:      formatTime(o.CreatedAt),
		UpdatedAt:      formatTime(o.UpdatedAt),
	}
}

// ToOrderInfo 返回给用户的订单视图
func ToOrderInfo(o *model.PaymentOrder) dto.OrderInfo {
	return buildOrderInfo(o)
}

// Result 返回给管理员的审核结果，不含 key
func (a *Approval) Result() *dto.ReviewResult {
	result := ToReviewResult(a.Order)
	if a.Subscription != nil {
		result.EndAt = formatTime(a.Subscription.EndAt)
	}
	return result
}

// ToReviewResult 驳回等不产生订阅的审核结果
func ToReviewResult(o *model.PaymentOrder) *dto.ReviewResult {
	return &dto.ReviewResult{
		OrderID:        o.ID,
		Status:         o.Status,
		SubscriptionID: o.SubscriptionID,
	}
}
