package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, cleanup
}

func TestOrderReviewedEvent_OmitEmpty(t *testing.T) {
	evt := &OrderReviewedEvent{
		UserID:  1,
		OrderID: 2,
		Status:  "REJECTED",
	}

	data, err := json.Marshal(evt)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Contains(t, raw, "order_id")
	_, hasEndAt := raw["end_at"]
	_, hasNote := raw["admin_note"]
	assert.False(t, hasEndAt, "rejected orders carry no end_at")
	assert.False(t, hasNote)
}

func TestPublisherSubscriber(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	publisher := NewPublisher(client)
	subscriber := NewSubscriber(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *OrderReviewedEvent, 8)
	done := make(chan error, 1)
	go func() {
		done <- subscriber.Subscribe(ctx, func(evt *OrderReviewedEvent) {
			select {
			case received <- evt:
			default:
			}
		})
	}()

	endAt := time.Date(2026, 11, 14, 0, 0, 0, 0, time.UTC)

	// 订阅是异步建立的，重复发布直到收到
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var got *OrderReviewedEvent
	for got == nil {
		select {
		case got = <-received:
		case <-ticker.C:
			err := publisher.PublishOrderReviewed(ctx, &OrderReviewedEvent{
				UserID:   7,
				OrderID:  11,
				Status:   "APPROVED",
				PlanName: "pro",
				EndAt:    &endAt,
			})
			require.NoError(t, err)
		case <-ctx.Done():
			t.Fatal("timeout waiting for order event")
		}
	}

	assert.Equal(t, EventOrderReviewed, got.Type)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, int64(11), got.OrderID)
	assert.Equal(t, "pro", got.PlanName)
	require.NotNil(t, got.EndAt)
	assert.True(t, endAt.Equal(*got.EndAt))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
