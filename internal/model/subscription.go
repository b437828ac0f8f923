package model

import (
	"time"
)

const (
	SubscriptionStatusActive    = "ACTIVE"
	SubscriptionStatusExpired   = "EXPIRED"
	SubscriptionStatusCancelled = "CANCELLED"
)

// Subscription 订阅记录。IsActive 标记用户当前生效的那一条，续费时新建记录而不是延长旧记录
type Subscription struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	UserID         int64      `gorm:"not null;index:idx_subscriptions_user_active" json:"user_id"`
	PlanName       string     `gorm:"size:20;not null" json:"plan_name"`
	Status         string     `gorm:"size:20;default:ACTIVE;index" json:"status"` // ACTIVE, EXPIRED, CANCELLED
	IsActive       bool       `gorm:"not null;default:false;index:idx_subscriptions_user_active" json:"is_active"`
	DailyLimit     int        `gorm:"not null" json:"daily_limit"`
	DailyUsedToday int        `gorm:"not null;default:0" json:"daily_used_today"`
	LastUsageDate  *time.Time `json:"last_usage_date,omitempty"`
	StartAt        time.Time  `gorm:"not null" json:"start_at"`
	EndAt          time.Time  `gorm:"not null;index" json:"end_at"`
	APIKeyID       *int64     `gorm:"column:api_key_id;uniqueIndex" json:"api_key_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	User   *User   `gorm:"foreignKey:UserID" json:"-"`
	APIKey *APIKey `gorm:"foreignKey:APIKeyID" json:"-"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// IsLive 生效中：isActive、状态 ACTIVE 且未到期
func (s *Subscription) IsLive(now time.Time) bool {
	return s.IsActive && s.Status == SubscriptionStatusActive && now.Before(s.EndAt)
}
