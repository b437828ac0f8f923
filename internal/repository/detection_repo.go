package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/visionflow_server/internal/model"
)

// DetectionFilter 历史记录过滤条件，零值字段不参与过滤
type DetectionFilter struct {
	Search string
	From   *time.Time
	To     *time.Time
}

// ObjectCount 识别结果按对象名聚合
type ObjectCount struct {
	ObjectName string
	Count      int64
}

type DetectionRepository struct {
	db *gorm.DB
}

func NewDetectionRepository(db *gorm.DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

func (r *DetectionRepository) Create(ctx context.Context, job *model.DetectionJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *DetectionRepository) GetByID(ctx context.Context, id int64) (*model.DetectionJob, error) {
	var job model.DetectionJob
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListByUser 分页查询用户的识别记录，最新的在前
func (r *DetectionRepository) ListByUser(ctx context.Context, userID int64, filter DetectionFilter, page, pageSize int) ([]model.DetectionJob, int64, error) {
	var jobs []model.DetectionJob
	var total int64

	query := r.db.WithContext(ctx).Model(&model.DetectionJob{}).Where("user_id = ?", userID)
	if filter.Search != "" {
		query = query.Where("object_name LIKE ?", "%"+filter.Search+"%")
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&jobs).Error; err != nil {
		return nil, 0, err
	}

	return jobs, total, nil
}

// DeleteByUser 只删除属于该用户的记录，返回删除条数
func (r *DetectionRepository) DeleteByUser(ctx context.Context, userID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Delete(&model.DetectionJob{})
	return result.RowsAffected, result.Error
}

// MarkProcessing 仅当记录仍在排队时置为 processing，记录已被删除或已被其他 worker 领取时返回 false
func (r *DetectionRepository) MarkProcessing(ctx context.Context, id int64, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.DetectionJob{}).
		Where("id = ? AND status = ?", id, model.DetectionStatusQueued).
		Updates(map[string]interface{}{
			"status":     model.DetectionStatusProcessing,
			"started_at": now,
		})
	return result.RowsAffected == 1, result.Error
}

func (r *DetectionRepository) MarkCompleted(ctx context.Context, id int64, objectName, advice, heatmapURL string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&model.DetectionJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.DetectionStatusCompleted,
			"object_name":  objectName,
			"advice":       advice,
			"heatmap_url":  heatmapURL,
			"completed_at": now,
		}).Error
}

func (r *DetectionRepository) MarkFailed(ctx context.Context, id int64, message string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&model.DetectionJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.DetectionStatusFailed,
			"error_message": message,
			"completed_at":  now,
		}).Error
}

func (r *DetectionRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.DetectionJob{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CountByUsers 批量统计每个用户的识别次数，没有记录的用户不出现在结果中
func (r *DetectionRepository) CountByUsers(ctx context.Context, userIDs []int64) (map[int64]int64, error) {
	result := make(map[int64]int64, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		UserID int64
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&model.DetectionJob{}).
		Select("user_id, COUNT(*) AS count").
		Where("user_id IN ?", userIDs).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.UserID] = row.Count
	}
	return result, nil
}

func (r *DetectionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.DetectionJob{}).Count(&count).Error
	return count, err
}

// TopObjects 已完成记录中出现最多的对象
func (r *DetectionRepository) TopObjects(ctx context.Context, userID int64, limit int) ([]ObjectCount, error) {
	var rows []ObjectCount
	err := r.db.WithContext(ctx).Model(&model.DetectionJob{}).
		Select("object_name, COUNT(*) AS count").
		Where("user_id = ? AND status = ? AND object_name <> ''", userID, model.DetectionStatusCompleted).
		Group("object_name").
		Order("count DESC, object_name ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// CreatedSince 用户自 since 起的记录创建时间，用于按天统计
func (r *DetectionRepository) CreatedSince(ctx context.Context, userID int64, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).Model(&model.DetectionJob{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Pluck("created_at", &times).Error
	return times, err
}
