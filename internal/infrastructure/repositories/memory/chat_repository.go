package memory

import (
	"context"
	"sync"

	"communiconnect/internal/core/domain"
)

// ChatRepository keeps per-stream message history in memory, newest last.
type ChatRepository struct {
	mu       sync.RWMutex
	messages map[domain.LivestreamID][]*domain.ChatMessage
}

func NewChatRepository() *ChatRepository {
	return &ChatRepository{
		messages: make(map[domain.LivestreamID][]*domain.ChatMessage),
	}
}

func (r *ChatRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[msg.LivestreamID] = append(r.messages[msg.LivestreamID], msg)
	return nil
}

func (r *ChatRepository) History(ctx context.Context, id domain.LivestreamID, limit int) ([]*domain.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.messages[id]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*domain.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (r *ChatRepository) Trim(ctx context.Context, id domain.LivestreamID, keep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.messages[id]
	if keep > 0 && len(msgs) > keep {
		trimmed := make([]*domain.ChatMessage, keep)
		copy(trimmed, msgs[len(msgs)-keep:])
		r.messages[id] = trimmed
	}
	return nil
}
