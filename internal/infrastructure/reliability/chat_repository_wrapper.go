package reliability

import (
	"context"

	"communiconnect/internal/core/domain"
	"communiconnect/internal/core/ports"
	"communiconnect/pkg/circuitbreaker"

	"go.uber.org/zap"
)

// ChatRepositoryWrapper fronts the durable chat repository with a circuit
// breaker and an in-memory fallback. When the primary (Redis) degrades, chat
// keeps working on instance-local history; writes are mirrored to the
// fallback so a primary outage does not blank the room.
type ChatRepositoryWrapper struct {
	primary  ports.ChatRepository
	fallback ports.ChatRepository
	breaker  *circuitbreaker.Breaker
	logger   *zap.SugaredLogger
}

func NewChatRepositoryWrapper(
	primary ports.ChatRepository,
	fallback ports.ChatRepository,
	cfg circuitbreaker.Config,
	logger *zap.SugaredLogger,
) *ChatRepositoryWrapper {
	return &ChatRepositoryWrapper{
		primary:  primary,
		fallback: fallback,
		breaker:  circuitbreaker.New(cfg),
		logger:   logger,
	}
}

func (w *ChatRepositoryWrapper) Append(ctx context.Context, msg *domain.ChatMessage) error {
	// Fallback is always written so it stays warm for a failover.
	if err := w.fallback.Append(ctx, msg); err != nil {
		w.logger.Warnw("fallback chat append failed", "error", err)
	}

	err := w.breaker.Do(func() error {
		return w.primary.Append(ctx, msg)
	})
	if err != nil {
		w.logger.Warnw("primary chat append failed, message kept in fallback",
			"livestream_id", msg.LivestreamID, "error", err)
	}
	return nil
}

func (w *ChatRepositoryWrapper) History(ctx context.Context, id domain.LivestreamID, limit int) ([]*domain.ChatMessage, error) {
	var msgs []*domain.ChatMessage
	err := w.breaker.Do(func() error {
		var err error
		msgs, err = w.primary.History(ctx, id, limit)
		return err
	})
	if err != nil {
		w.logger.Warnw("primary chat history failed, serving fallback",
			"livestream_id", id, "error", err)
		return w.fallback.History(ctx, id, limit)
	}
	return msgs, nil
}

func (w *ChatRepositoryWrapper) Trim(ctx context.Context, id domain.LivestreamID, keep int) error {
	if err := w.fallback.Trim(ctx, id, keep); err != nil {
		w.logger.Warnw("fallback chat trim failed", "error", err)
	}
	err := w.breaker.Do(func() error {
		return w.primary.Trim(ctx, id, keep)
	})
	if err != nil {
		w.logger.Warnw("primary chat trim failed", "livestream_id", id, "error", err)
	}
	return nil
}

// BreakerState exposes the breaker for health reporting.
func (w *ChatRepositoryWrapper) BreakerState() circuitbreaker.State {
	return w.breaker.State()
}
