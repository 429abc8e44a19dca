package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"communiconnect/internal/core/domain"
	"communiconnect/internal/core/ports"
	"communiconnect/pkg/utils"
	"communiconnect/pkg/validation"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ChatServiceConfig bounds message size and per-author throughput.
type ChatServiceConfig struct {
	HistoryLimit      int
	MaxMessageLength  int
	MessagesPerSecond float64
	Burst             int
}

func DefaultChatServiceConfig() ChatServiceConfig {
	return ChatServiceConfig{
		HistoryLimit:      200,
		MaxMessageLength:  500,
		MessagesPerSecond: 2,
		Burst:             5,
	}
}

// ChatService validates, persists and fans out chat messages. Blank
// submissions are swallowed silently: no message, no error.
type ChatService struct {
	cfg    ChatServiceConfig
	repo   ports.ChatRepository
	feed   ports.ChatFeed
	logger *zap.SugaredLogger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewChatService(cfg ChatServiceConfig, repo ports.ChatRepository, feed ports.ChatFeed, logger *zap.SugaredLogger) *ChatService {
	return &ChatService{
		cfg:      cfg,
		repo:     repo,
		feed:     feed,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Submit normalizes and stores a message typed by the author. A submission
// that is empty after trimming is ignored without error, mirroring a send
// button that does nothing on blank input.
func (s *ChatService) Submit(ctx context.Context, livestreamID domain.LivestreamID, author, text string) (*domain.ChatMessage, error) {
	normalized := validation.NormalizeChatText(text, s.cfg.MaxMessageLength)
	if normalized == "" {
		return nil, nil
	}
	if err := validation.ValidateAuthor(author); err != nil {
		return nil, err
	}
	if !s.limiter(author).Allow() {
		s.logger.Infow("chat message rate limited",
			"livestream_id", livestreamID, "author", author)
		return nil, domain.ErrRateLimited
	}

	msg := &domain.ChatMessage{
		ID:           domain.MessageID(utils.GenerateMessageID()),
		LivestreamID: livestreamID,
		Author:       author,
		Text:         normalized,
		Timestamp:    time.Now().UTC(),
	}
	if err := s.Append(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Append stores an already-formed message (incoming feed, remote peers) and
// publishes it to the live feed.
func (s *ChatService) Append(ctx context.Context, msg *domain.ChatMessage) error {
	if err := s.repo.Append(ctx, msg); err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	if err := s.repo.Trim(ctx, msg.LivestreamID, s.cfg.HistoryLimit); err != nil {
		s.logger.Warnw("failed to trim chat history",
			"livestream_id", msg.LivestreamID, "error", err)
	}
	if s.feed != nil {
		if err := s.feed.Publish(ctx, msg); err != nil {
			s.logger.Warnw("failed to publish chat message to feed",
				"livestream_id", msg.LivestreamID, "error", err)
		}
	}
	return nil
}

// History returns up to limit recent messages, oldest first.
func (s *ChatService) History(ctx context.Context, livestreamID domain.LivestreamID, limit int) ([]*domain.ChatMessage, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.repo.History(ctx, livestreamID, limit)
}

func (s *ChatService) limiter(author string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[author]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.cfg.MessagesPerSecond), s.cfg.Burst)
		s.limiters[author] = l
	}
	return l
}
