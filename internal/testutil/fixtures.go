package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/visionflow_server/internal/model"
)

var seq int64

func nextSeq() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	user := &model.User{
		Email:        fmt.Sprintf("test_%d_%d@example.com", time.Now().UnixNano(), nextSeq()),
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuvwxyz123456", // bcrypt hash placeholder
		FirstName:    "Test",
		LastName:     "User",
		Role:         model.RoleUser,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithRole 设置角色
func WithRole(role string) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// TestOrder 创建测试订单
func TestOrder(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.PaymentOrder)) *model.PaymentOrder {
	t.Helper()

	order := &model.PaymentOrder{
		UserID:         userID,
		PlanName:       "pro",
		Amount:         1200,
		Currency:       model.DefaultCurrency,
		PaymentRef:     "01712345678",
		TransactionRef: fmt.Sprintf("TX-%d-%d", time.Now().UnixNano(), nextSeq()),
		Status:         model.OrderStatusPending,
	}

	for _, opt := range opts {
		opt(order)
	}

	if err := db.Create(order).Error; err != nil {
		t.Fatalf("Failed to create test order: %v", err)
	}

	return order
}

// WithPlan 设置订单套餐
func WithPlan(plan string) func(*model.PaymentOrder) {
	return func(o *model.PaymentOrder) {
		o.PlanName = plan
	}
}

// WithOrderStatus 设置订单状态
func WithOrderStatus(status string) func(*model.PaymentOrder) {
	return func(o *model.PaymentOrder) {
		o.Status = status
	}
}

// WithTransactionRef 设置交易号
func WithTransactionRef(ref string) func(*model.PaymentOrder) {
	return func(o *model.PaymentOrder) {
		o.TransactionRef = ref
	}
}

// TestSubscription 创建一条生效中的订阅及其 API Key
func TestSubscription(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	now := time.Now().UTC()
	key := &model.APIKey{
		UserID:    userID,
		Key:       fmt.Sprintf("vf_test_%d_%d", now.UnixNano(), nextSeq()),
		IsActive:  true,
		IssuedAt:  now,
		ExpiresAt: now.AddDate(0, 0, 30),
	}
	if err := db.Create(key).Error; err != nil {
		t.Fatalf("Failed to create test api key: %v", err)
	}

	sub := &model.Subscription{
		UserID:     userID,
		PlanName:   "pro",
		Status:     model.SubscriptionStatusActive,
		IsActive:   true,
		DailyLimit: 30,
		StartAt:    now,
		EndAt:      now.AddDate(0, 0, 30),
		APIKeyID:   &key.ID,
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithDailyLimit 设置日配额
func WithDailyLimit(limit int) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.DailyLimit = limit
	}
}

// WithUsage 设置当日已用次数与最后使用时间
func WithUsage(used int, lastUsage time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.DailyUsedToday = used
		last := lastUsage.UTC()
		s.LastUsageDate = &last
	}
}

// WithEndAt 设置到期时间
func WithEndAt(endAt time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.EndAt = endAt.UTC()
	}
}

// TestDetection 创建一条识别记录，默认已完成
func TestDetection(t *testing.T, db *gorm.DB, userID, subscriptionID int64, opts ...func(*model.DetectionJob)) *model.DetectionJob {
	t.Helper()

	job := &model.DetectionJob{
		UserID:         userID,
		SubscriptionID: subscriptionID,
		ImageURL:       fmt.Sprintf("https://cdn.example.com/%d.jpg", nextSeq()),
		Status:         model.DetectionStatusCompleted,
		ObjectName:     "cat",
		Advice:         "keep it fed",
		CreatedAt:      time.Now().UTC(),
	}

	for _, opt := range opts {
		opt(job)
	}

	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test detection: %v", err)
	}

	return job
}

// WithDetectionStatus 设置识别状态
func WithDetectionStatus(status string) func(*model.DetectionJob) {
	return func(j *model.DetectionJob) {
		j.Status = status
	}
}

// WithObjectName 设置识别出的对象
func WithObjectName(name string) func(*model.DetectionJob) {
	return func(j *model.DetectionJob) {
		j.ObjectName = name
	}
}

// WithCreatedAt 设置创建时间
func WithCreatedAt(at time.Time) func(*model.DetectionJob) {
	return func(j *model.DetectionJob) {
		j.CreatedAt = at.UTC()
	}
}

// CountActive 统计用户 isActive 的订阅与 key 数量
func CountActive(t *testing.T, db *gorm.DB, userID int64) (subs int64, keys int64) {
	t.Helper()

	if err := db.Model(&model.Subscription{}).Where("user_id = ? AND is_active = ?", userID, true).Count(&subs).Error; err != nil {
		t.Fatalf("Failed to count subscriptions: %v", err)
	}
	if err := db.Model(&model.APIKey{}).Where("user_id = ? AND is_active = ?", userID, true).Count(&keys).Error; err != nil {
		t.Fatalf("Failed to count api keys: %v", err)
	}
	return subs, keys
}
