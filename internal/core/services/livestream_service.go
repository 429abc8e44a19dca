package services

import (
	"context"
	"fmt"
	"time"

	"communiconnect/internal/core/domain"
	"communiconnect/internal/core/ports"
	"communiconnect/pkg/cache"
	"communiconnect/pkg/utils"
	"communiconnect/pkg/validation"

	"go.uber.org/zap"
)

// LivestreamService manages the stream catalog sessions attach to.
type LivestreamService struct {
	repo   ports.LivestreamRepository
	logger *zap.SugaredLogger
}

func NewLivestreamService(repo ports.LivestreamRepository, logger *zap.SugaredLogger) *LivestreamService {
	return &LivestreamService{repo: repo, logger: logger}
}

func (s *LivestreamService) Create(ctx context.Context, title, streamer, category string) (*domain.Livestream, error) {
	if title == "" {
		return nil, fmt.Errorf("livestream title is required")
	}
	if err := validation.ValidateAuthor(streamer); err != nil {
		return nil, fmt.Errorf("invalid streamer name: %w", err)
	}

	stream := &domain.Livestream{
		ID:        domain.LivestreamID(utils.GenerateLivestreamID()),
		Title:     title,
		Streamer:  streamer,
		Category:  category,
		Active:    true,
		StartedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, stream); err != nil {
		return nil, fmt.Errorf("failed to create livestream: %w", err)
	}

	s.logger.Infow("livestream created",
		"livestream_id", stream.ID, "title", title, "streamer", streamer)
	return stream, nil
}

func (s *LivestreamService) Get(ctx context.Context, id domain.LivestreamID) (*domain.Livestream, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *LivestreamService) List(ctx context.Context) ([]*domain.Livestream, error) {
	return s.repo.ListActive(ctx)
}

func (s *LivestreamService) End(ctx context.Context, id domain.LivestreamID) error {
	stream, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	stream.Active = false
	if err := s.repo.Update(ctx, stream); err != nil {
		return fmt.Errorf("failed to end livestream: %w", err)
	}
	s.logger.Infow("livestream ended", "livestream_id", id)
	return nil
}

func (s *LivestreamService) SetViewerCount(ctx context.Context, id domain.LivestreamID, count int) error {
	stream, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	stream.ViewerCount = count
	return s.repo.Update(ctx, stream)
}

// CachedLivestreamService fronts a LivestreamService with a short-lived
// cache; the stream list is the hottest read path.
type CachedLivestreamService struct {
	inner ports.LivestreamService
	cache *cache.Cache
	ttl   time.Duration
}

func NewCachedLivestreamService(inner ports.LivestreamService, ttl time.Duration) *CachedLivestreamService {
	return &CachedLivestreamService{
		inner: inner,
		cache: cache.New(ttl),
		ttl:   ttl,
	}
}

func (s *CachedLivestreamService) Create(ctx context.Context, title, streamer, category string) (*domain.Livestream, error) {
	stream, err := s.inner.Create(ctx, title, streamer, category)
	if err == nil {
		s.cache.Delete("livestreams:active")
	}
	return stream, err
}

func (s *CachedLivestreamService) Get(ctx context.Context, id domain.LivestreamID) (*domain.Livestream, error) {
	key := "livestream:" + string(id)
	if v, ok := s.cache.Get(key); ok {
		return v.(*domain.Livestream), nil
	}
	stream, err := s.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, stream)
	return stream, nil
}

func (s *CachedLivestreamService) List(ctx context.Context) ([]*domain.Livestream, error) {
	if v, ok := s.cache.Get("livestreams:active"); ok {
		return v.([]*domain.Livestream), nil
	}
	streams, err := s.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set("livestreams:active", streams)
	return streams, nil
}

func (s *CachedLivestreamService) End(ctx context.Context, id domain.LivestreamID) error {
	err := s.inner.End(ctx, id)
	if err == nil {
		s.cache.Delete("livestream:" + string(id))
		s.cache.Delete("livestreams:active")
	}
	return err
}

func (s *CachedLivestreamService) SetViewerCount(ctx context.Context, id domain.LivestreamID, count int) error {
	err := s.inner.SetViewerCount(ctx, id, count)
	if err == nil {
		s.cache.Delete("livestream:" + string(id))
		s.cache.Delete("livestreams:active")
	}
	return err
}
