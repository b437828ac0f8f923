package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/qs3c/visionflow_server/internal/pkg/queue"
)

// Source 任务来源，超时无任务时返回 nil
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.DetectionMessage, error)
}

// Pool 从队列取任务交给 Processor，ctx 取消后各 worker 处理完手头任务再退出
type Pool struct {
	source     Source
	processor  *Processor
	workers    int
	popTimeout time.Duration
	logger     *zap.Logger
}

func NewPool(source Source, processor *Processor, workers int, l *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		source:     source,
		processor:  processor,
		workers:    workers,
		popTimeout: 5 * time.Second,
		logger:     l,
	}
}

func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		workerID := i
		g.Go(func() error {
			p.loop(ctx, workerID)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	l := p.logger.With(zap.Int("worker", workerID))
	for {
		if ctx.Err() != nil {
			l.Info("worker shutting down")
			return
		}

		msg, err := p.source.Pop(ctx, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.Warn("failed to pop job", zap.Error(err))
			// 避免 Redis 不可用时空转
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if msg == nil {
			continue
		}

		// 已出队的任务不受关闭信号影响
		if err := p.processor.Process(context.WithoutCancel(ctx), msg); err != nil {
			l.Error("detection job failed", zap.Int64("job_id", msg.JobID), zap.Error(err))
			continue
		}
		l.Info("detection job processed", zap.Int64("job_id", msg.JobID))
	}
}
