package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/visionflow_server/config"
	"github.com/qs3c/visionflow_server/internal/database"
	"github.com/qs3c/visionflow_server/internal/pkg/logger"
	"github.com/qs3c/visionflow_server/internal/pkg/queue"
	"github.com/qs3c/visionflow_server/internal/repository"
	"github.com/qs3c/visionflow_server/internal/worker"
)

var configPath = flag.String("config", "", "path to config file (default $CONFIG_PATH or config.yaml)")

func main() {
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}

	// 加载配置
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	if cfg.Inference.Endpoint == "" {
		l.Fatal("inference.endpoint is required")
	}

	// 初始化数据库
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		l.Fatal("failed to connect database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		l.Fatal("failed to connect redis", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	detector := worker.NewHTTPDetector(cfg.Inference.Endpoint, time.Duration(cfg.Inference.TimeoutSeconds)*time.Second)
	processor := worker.NewProcessor(repository.NewDetectionRepository(db), detector, l)
	pool := worker.NewPool(queue.NewQueue(rdb, cfg.Queue.DetectionQueue), processor, cfg.Queue.MaxWorkers, l)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l.Info("worker started",
		zap.Int("max_workers", cfg.Queue.MaxWorkers),
		zap.String("queue", cfg.Queue.DetectionQueue),
	)
	if err := pool.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		l.Error("worker stopped", zap.Error(err))
	}
	l.Info("worker shutdown complete")
}
