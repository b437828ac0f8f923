package model

import (
	"time"
)

const (
	DetectionStatusQueued     = "queued"
	DetectionStatusProcessing = "processing"
	DetectionStatusCompleted  = "completed"
	DetectionStatusFailed     = "failed"
)

// DetectionJob 每次计量调用留下的识别记录，worker 处理后回填结果
type DetectionJob struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	UserID         int64      `gorm:"not null;index:idx_detection_jobs_user_created" json:"user_id"`
	SubscriptionID int64      `gorm:"not null;index" json:"subscription_id"`
	ImageURL       string     `gorm:"size:1000;not null" json:"image_url"`
	Status         string     `gorm:"size:20;default:queued;index" json:"status"` // queued, processing, completed, failed
	ObjectName     string     `gorm:"size:100;index" json:"object_name,omitempty"`
	Advice         string     `gorm:"type:text" json:"advice,omitempty"`
	HeatmapURL     string     `gorm:"size:1000" json:"heatmap_url,omitempty"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time  `gorm:"index:idx_detection_jobs_user_created" json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func (DetectionJob) TableName() string {
	return "detection_jobs"
}

// IsFinished 已完成或失败
func (j *DetectionJob) IsFinished() bool {
	return j.Status == DetectionStatusCompleted || j.Status == DetectionStatusFailed
}
