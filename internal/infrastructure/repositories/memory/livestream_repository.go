package memory

import (
	"context"
	"sort"
	"sync"

	"communiconnect/internal/core/domain"
)

// LivestreamRepository is the in-memory stream catalog.
type LivestreamRepository struct {
	mu      sync.RWMutex
	streams map[domain.LivestreamID]*domain.Livestream
}

func NewLivestreamRepository() *LivestreamRepository {
	return &LivestreamRepository{
		streams: make(map[domain.LivestreamID]*domain.Livestream),
	}
}

func (r *LivestreamRepository) Create(ctx context.Context, stream *domain.Livestream) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *stream
	r.streams[stream.ID] = &cp
	return nil
}

func (r *LivestreamRepository) GetByID(ctx context.Context, id domain.LivestreamID) (*domain.Livestream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stream, ok := r.streams[id]
	if !ok {
		return nil, domain.ErrLivestreamNotFound
	}
	cp := *stream
	return &cp, nil
}

func (r *LivestreamRepository) Update(ctx context.Context, stream *domain.Livestream) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.streams[stream.ID]; !ok {
		return domain.ErrLivestreamNotFound
	}
	cp := *stream
	r.streams[stream.ID] = &cp
	return nil
}

func (r *LivestreamRepository) Delete(ctx context.Context, id domain.LivestreamID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.streams[id]; !ok {
		return domain.ErrLivestreamNotFound
	}
	delete(r.streams, id)
	return nil
}

func (r *LivestreamRepository) ListActive(ctx context.Context) ([]*domain.Livestream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Livestream
	for _, stream := range r.streams {
		if stream.Active {
			cp := *stream
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}
