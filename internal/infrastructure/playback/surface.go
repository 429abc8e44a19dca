package playback

import (
	"context"
	"sync"

	"communiconnect/internal/core/domain"

	"go.uber.org/zap"
)

// Surface is a headless video sink. It tracks the bound source and playback
// state and fires the metadata-ready callback synchronously on bind, since a
// frame-channel source has no probing delay. It stands in for a rendering
// element in server-side and test deployments.
type Surface struct {
	logger *zap.SugaredLogger

	mu         sync.Mutex
	source     *domain.MediaStreamHandle
	playing    bool
	volume     float64
	muted      bool
	onReady    func()
	onError    func(error)
	fullscreen bool
}

func NewSurface(logger *zap.SugaredLogger) *Surface {
	return &Surface{
		logger: logger,
		volume: 1.0,
	}
}

func (s *Surface) SetSource(h *domain.MediaStreamHandle) error {
	s.mu.Lock()
	s.source = h
	ready := s.onReady
	s.mu.Unlock()

	s.logger.Debugw("surface source set", "handle_id", h.ID, "source", h.Source)
	if ready != nil {
		ready()
	}
	return nil
}

func (s *Surface) ClearSource() {
	s.mu.Lock()
	s.source = nil
	s.playing = false
	s.mu.Unlock()
}

func (s *Surface) Source() *domain.MediaStreamHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

func (s *Surface) Play(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return domain.ErrNoSourceBound
	}
	s.playing = true
	return nil
}

func (s *Surface) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

func (s *Surface) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Surface) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
}

func (s *Surface) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *Surface) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
}

func (s *Surface) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

func (s *Surface) RequestFullscreen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return domain.ErrNoSourceBound
	}
	s.fullscreen = true
	return nil
}

func (s *Surface) Fullscreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullscreen
}

func (s *Surface) OnLoadedMetadata(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReady = fn
}

func (s *Surface) OnError(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}
