package services

import (
	"context"
	"testing"
	"time"

	"communiconnect/internal/core/domain"
	"communiconnect/internal/infrastructure/playback"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newBinderFixture(t *testing.T) (*PlaybackBinder, *playback.Surface) {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	surface := playback.NewSurface(log)
	return NewPlaybackBinder(surface, log), surface
}

func TestBindStartsPlayback(t *testing.T) {
	b, surface := newBinderFixture(t)
	h := domain.NewSimulatedHandle("h1")

	ready := false
	require.NoError(t, b.Bind(context.Background(), h, func() { ready = true }))

	assert.True(t, ready)
	assert.True(t, b.Bound())
	assert.Same(t, h, surface.Source())
	assert.True(t, surface.Playing())
}

func TestBindReplacesPreviousSource(t *testing.T) {
	b, surface := newBinderFixture(t)

	first := domain.NewSimulatedHandle("h1")
	second := domain.NewSimulatedHandle("h2")
	require.NoError(t, b.Bind(context.Background(), first, nil))
	require.NoError(t, b.Bind(context.Background(), second, nil))

	assert.Same(t, second, surface.Source())
}

func TestBindHonorsContext(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	surface := &silentSurface{Surface: playback.NewSurface(log)}
	b := NewPlaybackBinder(surface, log)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := b.Bind(ctx, domain.NewSimulatedHandle("h1"), nil)
	require.Error(t, err)
	assert.False(t, b.Bound())
}

// silentSurface never fires the metadata callback.
type silentSurface struct {
	*playback.Surface
}

func (s *silentSurface) SetSource(h *domain.MediaStreamHandle) error {
	s.OnLoadedMetadata(nil) // drop the one-shot before the base fires it
	return s.Surface.SetSource(h)
}

func TestUnbindIdempotent(t *testing.T) {
	b, surface := newBinderFixture(t)

	b.Unbind()
	require.NoError(t, b.Bind(context.Background(), domain.NewSimulatedHandle("h1"), nil))
	b.Unbind()
	b.Unbind()

	assert.Nil(t, surface.Source())
	assert.False(t, surface.Playing())
}

func TestGuardedControlsNoopWhenUnbound(t *testing.T) {
	b, surface := newBinderFixture(t)

	b.SetVolume(0.3)
	b.SetMuted(true)
	b.Pause()
	require.NoError(t, b.Play(context.Background()))
	require.NoError(t, b.RequestFullscreen())

	assert.Equal(t, 1.0, surface.Volume())
	assert.False(t, surface.Muted())
	assert.False(t, surface.Fullscreen())
}

func TestSetVolumeClamps(t *testing.T) {
	b, surface := newBinderFixture(t)
	require.NoError(t, b.Bind(context.Background(), domain.NewSimulatedHandle("h1"), nil))

	b.SetVolume(2.5)
	assert.Equal(t, 1.0, surface.Volume())
	b.SetVolume(-1)
	assert.Equal(t, 0.0, surface.Volume())
}

func TestAttachDoesNotWaitForMetadata(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	surface := &silentSurface{Surface: playback.NewSurface(log)}
	b := NewPlaybackBinder(surface, log)

	h := domain.NewSimulatedHandle("h1")
	done := make(chan struct{})
	go func() {
		b.Attach(h, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Attach blocked waiting for metadata")
	}
	assert.Same(t, h, surface.Source())
}
