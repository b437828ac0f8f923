package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/visionflow_server/internal/model"
	"github.com/qs3c/visionflow_server/internal/pkg/jwt"
	"github.com/qs3c/visionflow_server/internal/pkg/pubsub"
	"github.com/qs3c/visionflow_server/internal/pkg/ws"
)

func setupWebSocketServer(t *testing.T, hub *ws.Hub) *httptest.Server {
	t.Helper()

	handler := NewWebSocketHandler(hub, testJWTSecret, nil)
	router := gin.New()
	router.GET("/ws", handler.Handle)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func TestWebSocketHandler_RejectsMissingOrInvalidToken(t *testing.T) {
	server := setupWebSocketServer(t, ws.NewHub())

	resp, err := http.Get(server.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(server.URL + "/ws?token=garbage")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocketHandler_ReceivesOrderReviewed(t *testing.T) {
	hub := ws.NewHub()
	server := setupWebSocketServer(t, hub)

	token, err := jwt.GenerateToken(42, model.RoleUser, testJWTSecret, 1)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.IsOnline(42) }, 2*time.Second, 10*time.Millisecond)

	hub.PushOrderReviewed(&pubsub.OrderReviewedEvent{
		Type:     pubsub.EventOrderReviewed,
		UserID:   42,
		OrderID:  7,
		Status:   model.OrderStatusApproved,
		PlanName: "pro",
	})

	var msg struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, pubsub.EventOrderReviewed, msg.Type)
	assert.Equal(t, float64(7), msg.Data["order_id"])

	conn.Close()
	assert.Eventually(t, func() bool { return !hub.IsOnline(42) }, 2*time.Second, 10*time.Millisecond)
}
