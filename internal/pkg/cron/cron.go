package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepTimeout = 5 * time.Minute

// ExpirySweeper 将到期的订阅与 API key 置为失效
type ExpirySweeper interface {
	ExpireDue(ctx context.Context) (subscriptions int64, apiKeys int64, err error)
}

type Service struct {
	sweeper ExpirySweeper
	spec    string
	cron    *cron.Cron
}

// NewService spec 为标准 5 段表达式或 @hourly 这类描述符
func NewService(sweeper ExpirySweeper, spec string) (*Service, error) {
	s := &Service{
		sweeper: sweeper,
		spec:    spec,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}

	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return nil, fmt.Errorf("invalid expiry sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start 启动定时任务
func (s *Service) Start() {
	s.cron.Start()
	zap.L().Info("cron service started", zap.String("expiry_sweep", s.spec))
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	zap.L().Info("cron service stopped")
}

// RunNow 立即执行一次过期清理
func (s *Service) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	subs, keys, err := s.sweeper.ExpireDue(ctx)
	if err != nil {
		zap.L().Error("expiry sweep failed", zap.Error(err))
		return
	}
	if subs > 0 || keys > 0 {
		zap.L().Info("expiry sweep completed",
			zap.Int64("subscriptions", subs),
			zap.Int64("api_keys", keys),
		)
	}
}
