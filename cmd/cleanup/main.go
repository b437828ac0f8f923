package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/visionflow_server/config"
	"github.com/qs3c/visionflow_server/internal/database"
	"github.com/qs3c/visionflow_server/internal/pkg/logger"
	"github.com/qs3c/visionflow_server/internal/repository"
	"github.com/qs3c/visionflow_server/internal/service"
)

// 一次性执行到期清理，与服务内的定时任务逻辑相同，供运维手动或外部调度使用
var (
	configPath = flag.String("config", "", "path to config file (default $CONFIG_PATH or config.yaml)")
	timeout    = flag.Duration("timeout", 5*time.Minute, "maximum run time")
)

func main() {
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		l.Fatal("failed to connect database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	catalog, err := service.NewPlanCatalog(cfg.Subscription)
	if err != nil {
		l.Fatal("invalid plan catalog", zap.Error(err))
	}

	subService := service.NewSubscriptionService(
		db,
		repository.NewSubscriptionRepository(db),
		repository.NewAPIKeyRepository(db),
		catalog,
		cfg.Subscription,
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	subs, keys, err := subService.ExpireDue(ctx)
	if err != nil {
		l.Fatal("expiry cleanup failed", zap.Error(err))
	}

	l.Info("expiry cleanup finished",
		zap.Int64("subscriptions_expired", subs),
		zap.Int64("api_keys_expired", keys),
		zap.Duration("took", time.Since(start)),
	)
}
