package model

import (
	"time"
)

type APIKey struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index:idx_api_keys_user_active" json:"user_id"`
	Key       string    `gorm:"column:secret;size:128;uniqueIndex;not null" json:"-"`
	IsActive  bool      `gorm:"not null;default:false;index:idx_api_keys_user_active" json:"is_active"`
	IssuedAt  time.Time `gorm:"not null" json:"issued_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (APIKey) TableName() string {
	return "api_keys"
}

// Usable 停用或已过期的 key 都不可用
func (k *APIKey) Usable(now time.Time) bool {
	return k.IsActive && now.Before(k.ExpiresAt)
}
