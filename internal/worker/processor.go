package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/visionflow_server/internal/pkg/queue"
	"github.com/qs3c/visionflow_server/internal/repository"
)

// Result 识别结果
type Result struct {
	ObjectName string `json:"object_name"`
	Advice     string `json:"advice"`
	HeatmapURL string `json:"heatmap_url"`
}

// Detector 对一张图片执行识别
type Detector interface {
	Detect(ctx context.Context, imageURL string) (*Result, error)
}

// Processor 任务处理器
type Processor struct {
	detectionRepo *repository.DetectionRepository
	detector      Detector
	logger        *zap.Logger
	now           func() time.Time
}

func NewProcessor(detectionRepo *repository.DetectionRepository, detector Detector, l *zap.Logger) *Processor {
	return &Processor{
		detectionRepo: detectionRepo,
		detector:      detector,
		logger:        l,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Process 处理一条识别任务。记录已被删除或已被其他 worker 领取时直接跳过
func (p *Processor) Process(ctx context.Context, msg *queue.DetectionMessage) error {
	claimed, err := p.detectionRepo.MarkProcessing(ctx, msg.JobID, p.now())
	if err != nil {
		return fmt.Errorf("claim job %d: %w", msg.JobID, err)
	}
	if !claimed {
		p.logger.Info("detection job skipped", zap.Int64("job_id", msg.JobID))
		return nil
	}

	result, err := p.detector.Detect(ctx, msg.ImageURL)
	if err != nil {
		if markErr := p.detectionRepo.MarkFailed(ctx, msg.JobID, err.Error(), p.now()); markErr != nil {
			return fmt.Errorf("mark job %d failed: %w", msg.JobID, markErr)
		}
		return fmt.Errorf("detect job %d: %w", msg.JobID, err)
	}

	if err := p.detectionRepo.MarkCompleted(ctx, msg.JobID, result.ObjectName, result.Advice, result.HeatmapURL, p.now()); err != nil {
		return fmt.Errorf("complete job %d: %w", msg.JobID, err)
	}
	return nil
}
