package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"communiconnect/internal/core/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const chatChannel = "communiconnect:chat"

// ChatEvent is the wire form of a chat message crossing instances.
type ChatEvent struct {
	InstanceID   string              `json:"instance_id"`
	Timestamp    time.Time           `json:"timestamp"`
	LivestreamID domain.LivestreamID `json:"livestream_id"`
	Message      *domain.ChatMessage `json:"message"`
}

// ChatBus fans chat messages out across instances over Redis pub/sub, so
// viewers connected to different nodes see the same room. Implements
// ports.ChatFeed on the publish side.
type ChatBus struct {
	client     *redis.Client
	instanceID string
	logger     *zap.SugaredLogger
	pubsub     *redis.PubSub
}

func NewChatBus(client *redis.Client, instanceID string, logger *zap.SugaredLogger) *ChatBus {
	return &ChatBus{
		client:     client,
		instanceID: instanceID,
		logger:     logger,
	}
}

// Publish sends a locally authored message to every subscribed instance.
func (b *ChatBus) Publish(ctx context.Context, msg *domain.ChatMessage) error {
	event := ChatEvent{
		InstanceID:   b.instanceID,
		Timestamp:    time.Now(),
		LivestreamID: msg.LivestreamID,
		Message:      msg,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal chat event: %w", err)
	}
	if err := b.client.Publish(ctx, chatChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish chat event: %w", err)
	}

	b.logger.Debugw("published chat event",
		"livestream_id", msg.LivestreamID, "message_id", msg.ID)
	return nil
}

// Subscribe blocks delivering remote messages to handler until ctx is done.
// Events published by this instance are skipped.
func (b *ChatBus) Subscribe(ctx context.Context, handler func(*domain.ChatMessage) error) error {
	if b.pubsub != nil {
		return fmt.Errorf("already subscribed")
	}

	b.pubsub = b.client.Subscribe(ctx, chatChannel)
	defer b.pubsub.Close()

	ch := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event ChatEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warnw("failed to unmarshal chat event",
					"error", err, "payload", msg.Payload)
				continue
			}
			if event.InstanceID == b.instanceID || event.Message == nil {
				continue
			}
			if err := handler(event.Message); err != nil {
				b.logger.Warnw("error handling remote chat message",
					"livestream_id", event.LivestreamID, "error", err)
			}
		}
	}
}

func (b *ChatBus) Close() error {
	if b.pubsub != nil {
		return b.pubsub.Close()
	}
	return nil
}
