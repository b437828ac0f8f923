package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	ChannelOrderReviewed = "order_reviewed"

	EventOrderReviewed = "order_reviewed"
)

// OrderReviewedEvent 订单审核完成事件，事务提交后发布
type OrderReviewedEvent struct {
	Type      string     `json:"type"`
	UserID    int64      `json:"user_id"`
	OrderID   int64      `json:"order_id"`
	Status    string     `json:"status"`
	PlanName  string     `json:"plan_name"`
	AdminNote string     `json:"admin_note,omitempty"`
	EndAt     *time.Time `json:"end_at,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishOrderReviewed 发布审核结果
func (p *Publisher) PublishOrderReviewed(ctx context.Context, evt *OrderReviewedEvent) error {
	evt.Type = EventOrderReviewed

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	return p.client.Publish(ctx, ChannelOrderReviewed, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅审核事件，直到 ctx 取消
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*OrderReviewedEvent)) error {
	ps := s.client.Subscribe(ctx, ChannelOrderReviewed)
	defer ps.Close()

	// 等待订阅确认，避免订阅前发布的消息丢失
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", ChannelOrderReviewed, err)
	}

	ch := ps.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var evt OrderReviewedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				zap.L().Warn("dropping malformed order event", zap.Error(err))
				continue
			}

			handler(&evt)
		}
	}
}
