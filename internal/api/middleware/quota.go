package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs3c/visionflow_server/internal/pkg/response"
	"github.com/qs3c/visionflow_server/internal/service"
)

const QuotaDecisionKey = "quotaDecision"

// QuotaConsumer 每次计量调用扣减一次配额
type QuotaConsumer interface {
	CheckAndConsume(ctx context.Context, userID int64) (*service.QuotaDecision, error)
}

// QuotaGate 配额检查中间件，检查失败时拒绝
func QuotaGate(quota QuotaConsumer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		decision, err := quota.CheckAndConsume(c.Request.Context(), userID)
		if err != nil {
			zap.L().Error("quota check failed", zap.Int64("user_id", userID), zap.Error(err))
			response.ServerError(c, "配额检查失败")
			c.Abort()
			return
		}

		if !decision.Allowed {
			switch decision.Reason {
			case service.ReasonNoSubscription:
				response.QuotaError(c, "没有生效中的订阅")
			default:
				response.QuotaError(c, "")
			}
			c.Abort()
			return
		}

		c.Set(QuotaDecisionKey, decision)
		c.Next()
	}
}

// GetQuotaDecision 读取本次请求的配额结果
func GetQuotaDecision(c *gin.Context) (*service.QuotaDecision, bool) {
	v, exists := c.Get(QuotaDecisionKey)
	if !exists {
		return nil, false
	}
	decision, ok := v.(*service.QuotaDecision)
	return decision, ok
}
