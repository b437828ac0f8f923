package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/visionflow_server/internal/model"
	"github.com/qs3c/visionflow_server/internal/pkg/jwt"
	"github.com/qs3c/visionflow_server/internal/pkg/response"
)

const (
	APIKeyHeader = "X-API-Key"
	APIKeyIDKey  = "apiKeyID"
)

// APIKeyAuthenticator 校验 API Key
type APIKeyAuthenticator interface {
	AuthenticateAPIKey(ctx context.Context, secret string) (*model.APIKey, error)
}

// APIKeyAuth 计量接口的认证：X-API-Key 或 Bearer 形式的 API Key，
// Bearer 值不带 key 前缀时按 JWT 处理
func APIKeyAuth(keys APIKeyAuthenticator, keyPrefix, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := strings.TrimSpace(c.GetHeader(APIKeyHeader))
		if secret == "" {
			authHeader := c.GetHeader("Authorization")
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if authHeader == "" || token == authHeader {
				response.AuthError(c, "请提供 API Key 或登录凭证")
				c.Abort()
				return
			}

			if !strings.HasPrefix(token, keyPrefix) {
				claims, err := jwt.ParseToken(token, jwtSecret)
				if err != nil {
					response.AuthError(c, "认证失败或已过期")
					c.Abort()
					return
				}
				c.Set(UserIDKey, claims.UserID)
				c.Set(RoleKey, claims.Role)
				c.Next()
				return
			}
			secret = token
		}

		key, err := keys.AuthenticateAPIKey(c.Request.Context(), secret)
		if err != nil {
			response.AuthError(c, "API Key 无效或已过期")
			c.Abort()
			return
		}

		c.Set(UserIDKey, key.UserID)
		c.Set(APIKeyIDKey, key.ID)
		c.Next()
	}
}
