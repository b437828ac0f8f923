package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/visionflow_server/internal/model"
	"github.com/qs3c/visionflow_server/internal/model/dto"
	"github.com/qs3c/visionflow_server/internal/pkg/queue"
	"github.com/qs3c/visionflow_server/internal/repository"
)

const (
	dateLayout      = "2006-01-02"
	statsTopObjects = 5
	statsDays       = 30
)

// DetectionQueue 识别任务队列
type DetectionQueue interface {
	Push(ctx context.Context, msg *queue.DetectionMessage) error
}

type DetectionService struct {
	detectionRepo *repository.DetectionRepository
	queue         DetectionQueue
	now           func() time.Time
}

func NewDetectionService(detectionRepo *repository.DetectionRepository, q DetectionQueue) *DetectionService {
	return &DetectionService{
		detectionRepo: detectionRepo,
		queue:         q,
		now:           utcNow,
	}
}

// Submit 保存识别记录并入队。调用前配额已经扣减，入队失败时记录置为 failed，配额不退还
func (s *DetectionService) Submit(ctx context.Context, userID, subscriptionID int64, imageURL string) (*model.DetectionJob, error) {
	job := &model.DetectionJob{
		UserID:         userID,
		SubscriptionID: subscriptionID,
		ImageURL:       imageURL,
		Status:         model.DetectionStatusQueued,
		CreatedAt:      s.now(),
	}
	if err := s.detectionRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	msg := queue.NewDetectionMessage(job.ID, userID, subscriptionID, imageURL, job.CreatedAt)
	if err := s.queue.Push(ctx, msg); err != nil {
		if markErr := s.detectionRepo.MarkFailed(ctx, job.ID, "enqueue failed", s.now()); markErr != nil {
			zap.L().Error("failed to mark detection job failed", zap.Int64("job_id", job.ID), zap.Error(markErr))
		}
		return nil, fmt.Errorf("enqueue detection job %d: %w", job.ID, err)
	}

	return job, nil
}

// History 当前用户的识别记录
func (s *DetectionService) History(ctx context.Context, userID int64, q *dto.HistoryQuery) ([]dto.DetectionInfo, int64, error) {
	q.Normalize()

	filter := repository.DetectionFilter{Search: strings.TrimSpace(q.Search)}
	if q.DateFrom != "" {
		from, err := time.Parse(dateLayout, q.DateFrom)
		if err != nil {
			return nil, 0, ErrInvalidDate
		}
		filter.From = &from
	}
	if q.DateTo != "" {
		to, err := time.Parse(dateLayout, q.DateTo)
		if err != nil {
			return nil, 0, ErrInvalidDate
		}
		// 包含 date_to 当天
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}

	jobs, total, err := s.detectionRepo.ListByUser(ctx, userID, filter, q.Page, q.PageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]dto.DetectionInfo, 0, len(jobs))
	for i := range jobs {
		items = append(items, buildDetectionInfo(&jobs[i]))
	}
	return items, total, nil
}

// Delete 删除一条自己的记录，别人的记录按不存在处理
func (s *DetectionService) Delete(ctx context.Context, userID, id int64) error {
	deleted, err := s.detectionRepo.DeleteByUser(ctx, userID, []int64{id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrDetectionNotFound
	}
	return nil
}

// DeleteBulk 批量删除自己的记录，返回实际删除条数
func (s *DetectionService) DeleteBulk(ctx context.Context, userID int64, ids []int64) (int64, error) {
	return s.detectionRepo.DeleteByUser(ctx, userID, ids)
}

// Stats 识别总数、最常见的对象以及最近 30 天每天的次数
func (s *DetectionService) Stats(ctx context.Context, userID int64) (*dto.DetectionStats, error) {
	total, err := s.detectionRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	top, err := s.detectionRepo.TopObjects(ctx, userID, statsTopObjects)
	if err != nil {
		return nil, err
	}

	since := startOfDay(s.now()).AddDate(0, 0, -(statsDays - 1))
	times, err := s.detectionRepo.CreatedSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	perDay := make(map[string]int, statsDays)
	for _, t := range times {
		perDay[t.UTC().Format(dateLayout)]++
	}

	stats := &dto.DetectionStats{
		TotalDetections: total,
		MostCommon:      make([]dto.ObjectCount, 0, len(top)),
		Daily:           make([]dto.DailyCount, 0, statsDays),
	}
	for _, o := range top {
		stats.MostCommon = append(stats.MostCommon, dto.ObjectCount{ObjectName: o.ObjectName, Count: o.Count})
	}
	for i := 0; i < statsDays; i++ {
		day := since.AddDate(0, 0, i).Format(dateLayout)
		stats.Daily = append(stats.Daily, dto.DailyCount{Date: day, Count: perDay[day]})
	}

	return stats, nil
}

func buildDetectionInfo(j *model.DetectionJob) dto.DetectionInfo {
	return dto.DetectionInfo{
		ID:           j.ID,
		ImageURL:     j.ImageURL,
		Status:       j.Status,
		ObjectName:   j.ObjectName,
		Advice:       j.Advice,
		HeatmapURL:   j.HeatmapURL,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    formatTime(j.CreatedAt),
		CompletedAt:  formatTimePtr(j.CompletedAt),
	}
}
