package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/visionflow_server/internal/api/middleware"
	"github.com/qs3c/visionflow_server/internal/model/dto"
	"github.com/qs3c/visionflow_server/internal/pkg/response"
	"github.com/qs3c/visionflow_server/internal/service"
)

const (
	reviewActionApprove = "approve"
	reviewActionReject  = "reject"
)

type AdminHandler struct {
	orderService *service.OrderService
	adminService *service.AdminService
}

func NewAdminHandler(orderService *service.OrderService, adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{
		orderService: orderService,
		adminService: adminService,
	}
}

// ListOrders 订单列表，可按状态过滤
// GET /api/v1/admin/orders?status=PENDING&page=1&page_size=20
func (h *AdminHandler) ListOrders(c *gin.Context) {
	var q dto.AdminOrderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	orders, total, err := h.orderService.ListAll(c.Request.Context(), &q)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessPage(c, total, q.Page, q.PageSize, orders)
}

// Review 审核订单。通过时生成的 key 不会出现在响应中
// PATCH /api/v1/admin/orders/:id/review
func (h *AdminHandler) Review(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ReviewOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	ctx := c.Request.Context()
	switch req.Action {
	case reviewActionApprove:
		approval, err := h.orderService.Approve(ctx, orderID, req.AdminNote)
		if err != nil {
			respondError(c, err)
			return
		}
		response.SuccessWithMessage(c, "订单已通过", approval.Result())
	case reviewActionReject:
		order, err := h.orderService.Reject(ctx, orderID, req.AdminNote)
		if err != nil {
			respondError(c, err)
			return
		}
		response.SuccessWithMessage(c, "订单已驳回", service.ToReviewResult(order))
	default:
		response.ParamError(c, "action 只能是 approve 或 reject")
	}
}

// Stats 后台统计
// GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.adminService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, stats)
}

// ListUsers 用户列表
// GET /api/v1/admin/users?page=1&page_size=20
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	users, total, err := h.adminService.ListUsers(c.Request.Context(), &q)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessPage(c, total, q.Page, q.PageSize, users)
}

// UpdateRole 修改用户角色
// PATCH /api/v1/admin/users/:id/role
func (h *AdminHandler) UpdateRole(c *gin.Context) {
	operatorID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.adminService.UpdateRole(c.Request.Context(), operatorID, userID, req.Role); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "角色已更新", nil)
}
