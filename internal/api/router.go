package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/visionflow_server/config"
	"github.com/qs3c/visionflow_server/internal/api/handler"
	"github.com/qs3c/visionflow_server/internal/api/middleware"
	"github.com/qs3c/visionflow_server/internal/pkg/logger"
	"github.com/qs3c/visionflow_server/internal/service"
)

type Router struct {
	authHandler         *handler.AuthHandler
	subscriptionHandler *handler.SubscriptionHandler
	orderHandler        *handler.OrderHandler
	adminHandler        *handler.AdminHandler
	detectionHandler    *handler.DetectionHandler
	websocketHandler    *handler.WebSocketHandler

	authService  *service.AuthService
	subService   *service.SubscriptionService
	quotaService *service.QuotaService

	logger *zap.Logger
	cfg    *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	orderHandler *handler.OrderHandler,
	adminHandler *handler.AdminHandler,
	detectionHandler *handler.DetectionHandler,
	websocketHandler *handler.WebSocketHandler,
	authService *service.AuthService,
	subService *service.SubscriptionService,
	quotaService *service.QuotaService,
	l *zap.Logger,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:         authHandler,
		subscriptionHandler: subscriptionHandler,
		orderHandler:        orderHandler,
		adminHandler:        adminHandler,
		detectionHandler:    detectionHandler,
		websocketHandler:    websocketHandler,
		authService:         authService,
		subService:          subService,
		quotaService:        quotaService,
		logger:              l,
		cfg:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	keyPrefix := r.cfg.Subscription.APIKeyPrefix
	if keyPrefix == "" {
		keyPrefix = config.DefaultAPIKeyPrefix
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(r.logger))
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
		}

		// 公开接口 - 套餐
		api.GET("/subscription/plans", r.subscriptionHandler.Plans)

		// 需要登录的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			subscription := authenticated.Group("/subscription")
			{
				subscription.GET("/status", r.subscriptionHandler.Status)
				subscription.GET("/api-key", r.subscriptionHandler.APIKey)
				subscription.GET("/quota", r.subscriptionHandler.Quota)
			}

			orders := authenticated.Group("/orders")
			{
				orders.POST("", r.orderHandler.Submit)
				orders.GET("/me", r.orderHandler.ListMine)
			}

			// 识别历史
			detections := authenticated.Group("/detections")
			{
				detections.GET("", r.detectionHandler.History)
				detections.GET("/stats", r.detectionHandler.Stats)
				detections.DELETE("", r.detectionHandler.DeleteBulk)
				detections.DELETE("/:id", r.detectionHandler.Delete)
			}
		}

		// 管理后台
		admin := api.Group("/admin")
		admin.Use(middleware.Auth(r.cfg.JWT.Secret), middleware.RequireAdmin(r.authService))
		{
			admin.GET("/orders", r.adminHandler.ListOrders)
			admin.PATCH("/orders/:id/review", r.adminHandler.Review)
			admin.GET("/stats", r.adminHandler.Stats)
			admin.GET("/users", r.adminHandler.ListUsers)
			admin.PATCH("/users/:id/role", r.adminHandler.UpdateRole)
		}

		// 计量接口：API Key（或登录凭证），校验请求体后再扣配额
		metered := api.Group("")
		metered.Use(
			middleware.APIKeyAuth(r.subService, keyPrefix, r.cfg.JWT.Secret),
			r.detectionHandler.BindRequest,
			middleware.QuotaGate(r.quotaService),
		)
		{
			metered.POST("/detections", r.detectionHandler.Create)
		}
	}

	return engine
}
