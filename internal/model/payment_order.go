package model

import (
	"time"
)

const (
	OrderStatusPending  = "PENDING"
	OrderStatusApproved = "APPROVED"
	OrderStatusRejected = "REJECTED"
)

const DefaultCurrency = "BDT"

// PaymentOrder 用户提交的付款凭证，等待管理员审核
type PaymentOrder struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	UserID         int64      `gorm:"not null;index" json:"user_id"`
	PlanName       string     `gorm:"size:20;not null" json:"plan_name"`
	Amount         float64    `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency       string     `gorm:"size:10;default:BDT" json:"currency"`
	PaymentRef     string     `gorm:"size:50;not null" json:"payment_ref"`
	TransactionRef string     `gorm:"size:100;uniqueIndex;not null" json:"transaction_ref"`
	UserNote       string     `gorm:"type:text" json:"user_note,omitempty"`
	AdminNote      string     `gorm:"type:text" json:"admin_note,omitempty"`
	Status         string     `gorm:"size:20;default:PENDING;index" json:"status"` // PENDING, APPROVED, REJECTED
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	SubscriptionID *int64     `gorm:"index" json:"subscription_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	User         *User         `gorm:"foreignKey:UserID" json:"-"`
	Subscription *Subscription `gorm:"foreignKey:SubscriptionID" json:"-"`
}

func (PaymentOrder) TableName() string {
	return "payment_orders"
}

func (o *PaymentOrder) IsPending() bool {
	return o.Status == OrderStatusPending
}
