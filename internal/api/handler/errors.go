package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/visionflow_server/internal/pkg/response"
	"github.com/qs3c/visionflow_server/internal/service"
)

// respondError 将服务层错误映射为统一响应码
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPlan),
		errors.Is(err, service.ErrInvalidOrder),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidDate):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrDuplicateTransaction),
		errors.Is(err, service.ErrOrderAlreadyReviewed),
		errors.Is(err, service.ErrReviewInProgress),
		errors.Is(err, service.ErrEmailExists):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrNoActiveSubscription),
		errors.Is(err, service.ErrNoActiveAPIKey),
		errors.Is(err, service.ErrDetectionNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidAPIKey):
		response.AuthError(c, err.Error())
	case errors.Is(err, service.ErrCannotDemoteSelf):
		response.PermissionError(c, err.Error())
	default:
		_ = c.Error(err)
		response.ServerError(c, "")
	}
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "无效的 ID")
		return 0, false
	}
	return id, true
}
