package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/visionflow_server/internal/api/middleware"
	"github.com/qs3c/visionflow_server/internal/pkg/response"
	"github.com/qs3c/visionflow_server/internal/service"
)

type SubscriptionHandler struct {
	subService   *service.SubscriptionService
	quotaService *service.QuotaService
}

func NewSubscriptionHandler(subService *service.SubscriptionService, quotaService *service.QuotaService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subService:   subService,
		quotaService: quotaService,
	}
}

// Plans 套餐列表
// GET /api/v1/subscription/plans
func (h *SubscriptionHandler) Plans(c *gin.Context) {
	response.Success(c, h.subService.ListPlans())
}

// Status 当前订阅
// GET /api/v1/subscription/status
func (h *SubscriptionHandler) Status(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	status, err := h.subService.Status(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, status)
}

// APIKey 当前可用的 API Key，仅所有者可见
// GET /api/v1/subscription/api-key
func (h *SubscriptionHandler) APIKey(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	key, err := h.subService.CurrentAPIKey(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, key)
}

// Quota 配额信息，只读
// GET /api/v1/subscription/quota
func (h *SubscriptionHandler) Quota(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	info, err := h.quotaService.GetQuotaInfo(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, info)
}
