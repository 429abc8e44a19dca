package services

import (
	"context"
	"fmt"

	"communiconnect/internal/core/domain"
	"communiconnect/internal/core/ports"

	"go.uber.org/zap"
)

// PlaybackBinder attaches and detaches the current media handle on the video
// surface. Control calls are guarded by "only if a source is bound"; guarded
// no-ops are logged, never errors.
type PlaybackBinder struct {
	surface ports.VideoSurface
	logger  *zap.SugaredLogger
}

func NewPlaybackBinder(surface ports.VideoSurface, logger *zap.SugaredLogger) *PlaybackBinder {
	return &PlaybackBinder{
		surface: surface,
		logger:  logger,
	}
}

// Bound reports whether the surface currently has a source.
func (b *PlaybackBinder) Bound() bool {
	return b.surface.Source() != nil
}

// Bind detaches any previous source synchronously, attaches the handle and
// waits for the surface's metadata-ready signal, then starts playback.
// onReady fires as soon as metadata is available, before the play attempt.
// A play rejection (autoplay policies) is returned so the caller can route
// to its fallback path; the surface stays bound.
func (b *PlaybackBinder) Bind(ctx context.Context, h *domain.MediaStreamHandle, onReady func()) error {
	b.Unbind()

	ready := make(chan struct{})
	b.surface.OnLoadedMetadata(func() {
		close(ready)
	})
	b.surface.OnError(func(err error) {
		b.logger.Warnw("playback surface error", "handle_id", h.ID, "error", err)
	})

	if err := b.surface.SetSource(h); err != nil {
		return fmt.Errorf("failed to set surface source: %w", err)
	}

	select {
	case <-ready:
	case <-ctx.Done():
		b.Unbind()
		return fmt.Errorf("waiting for surface metadata: %w", ctx.Err())
	}

	if onReady != nil {
		onReady()
	}

	if err := b.surface.Play(ctx); err != nil {
		// Autoplay rejection is routine when there is no user gesture.
		b.logger.Warnw("surface play rejected", "handle_id", h.ID, "error", err)
		return fmt.Errorf("surface play: %w", err)
	}
	return nil
}

// Attach binds a handle without waiting for metadata. Used for simulated
// sources where the surface readiness signal may never fire; playback is
// attempted best-effort and a rejection only logged.
func (b *PlaybackBinder) Attach(h *domain.MediaStreamHandle, onReady func()) {
	b.Unbind()

	b.surface.OnLoadedMetadata(func() {
		if onReady != nil {
			onReady()
		}
	})
	b.surface.OnError(func(err error) {
		b.logger.Warnw("playback surface error", "handle_id", h.ID, "error", err)
	})

	if err := b.surface.SetSource(h); err != nil {
		b.logger.Warnw("failed to attach surface source", "handle_id", h.ID, "error", err)
		return
	}
	if err := b.surface.Play(context.Background()); err != nil {
		b.logger.Debugw("surface play rejected for attached source",
			"handle_id", h.ID, "error", err)
	}
}

// Unbind pauses, clears the source and drops event callbacks. Idempotent.
func (b *PlaybackBinder) Unbind() {
	if b.surface.Source() == nil {
		return
	}
	b.surface.Pause()
	b.surface.OnLoadedMetadata(nil)
	b.surface.OnError(nil)
	b.surface.ClearSource()
}

func (b *PlaybackBinder) Play(ctx context.Context) error {
	if !b.Bound() {
		b.logger.Debugw("play skipped, no source bound")
		return nil
	}
	return b.surface.Play(ctx)
}

func (b *PlaybackBinder) Pause() {
	if !b.Bound() {
		b.logger.Debugw("pause skipped, no source bound")
		return
	}
	b.surface.Pause()
}

func (b *PlaybackBinder) SetVolume(v float64) {
	if !b.Bound() {
		b.logger.Debugw("volume change skipped, no source bound", "volume", v)
		return
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	b.surface.SetVolume(v)
}

func (b *PlaybackBinder) SetMuted(muted bool) {
	if !b.Bound() {
		b.logger.Debugw("mute change skipped, no source bound", "muted", muted)
		return
	}
	b.surface.SetMuted(muted)
}

func (b *PlaybackBinder) RequestFullscreen() error {
	if !b.Bound() {
		b.logger.Debugw("fullscreen skipped, no source bound")
		return nil
	}
	return b.surface.RequestFullscreen()
}
