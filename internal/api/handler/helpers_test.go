package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/visionflow_server/config"
	"github.com/qs3c/visionflow_server/internal/api/middleware"
	"github.com/qs3c/visionflow_server/internal/pkg/response"
	"github.com/qs3c/visionflow_server/internal/repository"
	"github.com/qs3c/visionflow_server/internal/service"
	"github.com/qs3c/visionflow_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testJWTSecret = "test-secret-key"

type testEnv struct {
	db     *gorm.DB
	cfg    *config.Config
	auth   *service.AuthService
	orders *service.OrderService
	subs   *service.SubscriptionService
	quota  *service.QuotaService
	admin  *service.AdminService
}

func setupEnv(t *testing.T) (*testEnv, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:      testJWTSecret,
			ExpireHours: 24,
		},
	}

	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	keyRepo := repository.NewAPIKeyRepository(db)
	detectionRepo := repository.NewDetectionRepository(db)
	catalog := service.MustPlanCatalog(cfg.Subscription)

	env := &testEnv{
		db:     db,
		cfg:    cfg,
		auth:   service.NewAuthService(userRepo, cfg),
		orders: service.NewOrderService(db, orderRepo, subRepo, keyRepo, userRepo, catalog, cfg.Subscription),
		subs:   service.NewSubscriptionService(db, subRepo, keyRepo, catalog, cfg.Subscription),
		quota:  service.NewQuotaService(db, subRepo),
		admin:  service.NewAdminService(userRepo, orderRepo, subRepo, detectionRepo),
	}

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}
	return env, cleanup
}

// asUser 跳过 JWT，直接注入登录用户
func asUser(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

// dataMap 取出响应中的 data 对象
func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return data
}

// dataList 取出响应中的 data 数组
func dataList(t *testing.T, resp response.Response) []interface{} {
	t.Helper()

	data, ok := resp.Data.([]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return data
}

// pageItems 取出分页响应的 items 与 total
func pageItems(t *testing.T, resp response.Response) ([]interface{}, float64) {
	t.Helper()

	data := dataMap(t, resp)
	items, ok := data["items"].([]interface{})
	require.True(t, ok, "items is %T", data["items"])
	total, ok := data["total"].(float64)
	require.True(t, ok, "total is %T", data["total"])
	return items, total
}
