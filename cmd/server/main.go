package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/visionflow_server/config"
	"github.com/qs3c/visionflow_server/internal/api"
	"github.com/qs3c/visionflow_server/internal/api/handler"
	"github.com/qs3c/visionflow_server/internal/database"
	"github.com/qs3c/visionflow_server/internal/pkg/cron"
	"github.com/qs3c/visionflow_server/internal/pkg/email"
	"github.com/qs3c/visionflow_server/internal/pkg/lock"
	"github.com/qs3c/visionflow_server/internal/pkg/logger"
	"github.com/qs3c/visionflow_server/internal/pkg/pubsub"
	"github.com/qs3c/visionflow_server/internal/pkg/queue"
	"github.com/qs3c/visionflow_server/internal/pkg/ws"
	"github.com/qs3c/visionflow_server/internal/repository"
	"github.com/qs3c/visionflow_server/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to config file")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	if err := run(cfg, l); err != nil {
		l.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, l *zap.Logger) error {
	// 套餐配置错误时拒绝启动
	catalog, err := service.NewPlanCatalog(cfg.Subscription)
	if err != nil {
		return fmt.Errorf("plan catalog: %w", err)
	}

	// 初始化数据库
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	l.Info("database connected", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() { _ = rdb.Close() }()
	l.Info("redis connected")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 审核结果推送：Redis 订阅 -> WebSocket
	wsHub := ws.NewHub()
	go func() {
		err := pubsub.NewSubscriber(rdb).Subscribe(ctx, wsHub.PushOrderReviewed)
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("order event subscriber stopped", zap.Error(err))
		}
	}()

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	keyRepo := repository.NewAPIKeyRepository(db)
	detectionRepo := repository.NewDetectionRepository(db)

	// 初始化 Service
	authService := service.NewAuthService(userRepo, cfg)
	subService := service.NewSubscriptionService(db, subRepo, keyRepo, catalog, cfg.Subscription)
	quotaService := service.NewQuotaService(db, subRepo)
	adminService := service.NewAdminService(userRepo, orderRepo, subRepo, detectionRepo)
	orderService := service.NewOrderService(db, orderRepo, subRepo, keyRepo, userRepo, catalog, cfg.Subscription).
		WithLocker(lock.NewLocker(rdb)).
		WithPublisher(pubsub.NewPublisher(rdb)).
		WithMailer(email.NewService(&cfg.Email))

	// 定时停用到期的订阅与 key
	sweeper, err := cron.NewService(subService, cfg.Subscription.ExpirySweepCron)
	if err != nil {
		return fmt.Errorf("expiry sweep: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	detectionService := service.NewDetectionService(detectionRepo, queue.NewQueue(rdb, cfg.Queue.DetectionQueue))

	// 初始化 Handler 与 Router
	router := api.NewRouter(
		handler.NewAuthHandler(authService),
		handler.NewSubscriptionHandler(subService, quotaService),
		handler.NewOrderHandler(orderService),
		handler.NewAdminHandler(orderService, adminService),
		handler.NewDetectionHandler(detectionService),
		handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins),
		authService,
		subService,
		quotaService,
		l,
		cfg,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router.Setup(),
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	l.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// defaultConfigPath 配置文件路径也可由 CONFIG_PATH 指定
func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}
