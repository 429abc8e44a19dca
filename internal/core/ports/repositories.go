package ports

import (
	"context"

	"communiconnect/internal/core/domain"
)

type ChatRepository interface {
	Append(ctx context.Context, msg *domain.ChatMessage) error
	History(ctx context.Context, livestreamID domain.LivestreamID, limit int) ([]*domain.ChatMessage, error)
	Trim(ctx context.Context, livestreamID domain.LivestreamID, max int) error
}

type LivestreamRepository interface {
	Create(ctx context.Context, ls *domain.Livestream) error
	GetByID(ctx context.Context, id domain.LivestreamID) (*domain.Livestream, error)
	Update(ctx context.Context, ls *domain.Livestream) error
	Delete(ctx context.Context, id domain.LivestreamID) error
	ListActive(ctx context.Context) ([]*domain.Livestream, error)
}
