package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"communiconnect/internal/core/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const chatKeyPrefix = "communiconnect:chat:"

// ChatRepository stores per-stream chat history in Redis lists, newest at the
// head. LPUSH plus LTRIM keeps the history bounded server-side.
type ChatRepository struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

func NewChatRepository(client *redis.Client, logger *zap.SugaredLogger) *ChatRepository {
	return &ChatRepository{client: client, logger: logger}
}

func chatKey(id domain.LivestreamID) string {
	return chatKeyPrefix + string(id)
}

func (r *ChatRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}
	if err := r.client.LPush(ctx, chatKey(msg.LivestreamID), data).Err(); err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

func (r *ChatRepository) History(ctx context.Context, id domain.LivestreamID, limit int) ([]*domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	raw, err := r.client.LRange(ctx, chatKey(id), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}

	// List head is newest; callers expect oldest first.
	out := make([]*domain.ChatMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(raw[i]), &msg); err != nil {
			r.logger.Warnw("skipping undecodable chat message",
				"livestream_id", id, "error", err)
			continue
		}
		out = append(out, &msg)
	}
	return out, nil
}

func (r *ChatRepository) Trim(ctx context.Context, id domain.LivestreamID, keep int) error {
	if keep <= 0 {
		return nil
	}
	if err := r.client.LTrim(ctx, chatKey(id), 0, int64(keep-1)).Err(); err != nil {
		return fmt.Errorf("failed to trim chat history: %w", err)
	}
	return nil
}
