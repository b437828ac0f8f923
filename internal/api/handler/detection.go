package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/visionflow_server/internal/api/middleware"
	"github.com/qs3c/visionflow_server/internal/model/dto"
	"github.com/qs3c/visionflow_server/internal/pkg/response"
	"github.com/qs3c/visionflow_server/internal/service"
)

const detectionRequestKey = "detectionRequest"

type DetectionHandler struct {
	detectionService *service.DetectionService
}

func NewDetectionHandler(detectionService *service.DetectionService) *DetectionHandler {
	return &DetectionHandler{
		detectionService: detectionService,
	}
}

// BindRequest 在配额扣减之前校验请求体，参数错误不消耗配额
func (h *DetectionHandler) BindRequest(c *gin.Context) {
	var req dto.DetectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		c.Abort()
		return
	}
	c.Set(detectionRequestKey, &req)
	c.Next()
}

// Create 提交检测任务，配额已由中间件扣减
// POST /api/v1/detections
func (h *DetectionHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}
	decision, ok := middleware.GetQuotaDecision(c)
	if !ok {
		response.ServerError(c, "")
		return
	}

	v, _ := c.Get(detectionRequestKey)
	req, ok := v.(*dto.DetectionRequest)
	if !ok {
		response.ServerError(c, "")
		return
	}

	job, err := h.detectionService.Submit(c.Request.Context(), userID, decision.SubscriptionID, req.ImageURL)
	if err != nil {
		zap.L().Error("failed to submit detection job",
			zap.Int64("user_id", userID),
			zap.Int64("subscription_id", decision.SubscriptionID),
			zap.Error(err),
		)
		_ = c.Error(err)
		response.ServerError(c, "任务提交失败")
		return
	}

	response.Success(c, dto.DetectionResponse{
		JobID:      job.ID,
		Status:     job.Status,
		DailyUsed:  decision.Used,
		DailyLimit: decision.Limit,
	})
}

// History 识别历史，支持按对象名搜索和日期范围过滤
// GET /api/v1/detections?page=1&page_size=20&search=cat&date_from=2024-01-01&date_to=2024-01-31
func (h *DetectionHandler) History(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var q dto.HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	items, total, err := h.detectionService.History(c.Request.Context(), userID, &q)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessPage(c, total, q.Page, q.PageSize, items)
}

// Delete 删除一条历史记录
// DELETE /api/v1/detections/:id
func (h *DetectionHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.detectionService.Delete(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "记录已删除", nil)
}

// DeleteBulk 批量删除历史记录
// DELETE /api/v1/detections
func (h *DetectionHandler) DeleteBulk(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	deleted, err := h.detectionService.DeleteBulk(c.Request.Context(), userID, req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, dto.BulkDeleteResponse{Deleted: deleted})
}

// Stats 识别统计
// GET /api/v1/detections/stats
func (h *DetectionHandler) Stats(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	stats, err := h.detectionService.Stats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, stats)
}
