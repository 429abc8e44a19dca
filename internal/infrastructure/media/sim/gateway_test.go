package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"communiconnect/internal/core/domain"
	"communiconnect/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newGateway(t *testing.T, opts Options) *Gateway {
	t.Helper()
	return NewGateway(opts, zaptest.NewLogger(t).Sugar())
}

func cameraConstraints() ports.CameraConstraints {
	return ports.CameraConstraints{Width: 1280, Height: 720, FrameRate: 30, Audio: true}
}

func TestAcquireCameraProducesTracks(t *testing.T) {
	g := newGateway(t, Options{})

	h, err := g.AcquireCamera(context.Background(), cameraConstraints())
	require.NoError(t, err)
	require.NotNil(t, h)

	assert.Equal(t, domain.SourceCamera, h.Source)
	assert.True(t, h.Live())
	assert.Len(t, h.Tracks(), 2)
	assert.Len(t, h.AudioTracks(), 1)
	assert.Len(t, h.VideoTracks(), 1)
}

func TestAcquireCameraWithoutAudio(t *testing.T) {
	g := newGateway(t, Options{})
	c := cameraConstraints()
	c.Audio = false

	h, err := g.AcquireCamera(context.Background(), c)
	require.NoError(t, err)
	assert.Len(t, h.Tracks(), 1)
	assert.Empty(t, h.AudioTracks())
}

func TestAcquireCameraInjectedError(t *testing.T) {
	g := newGateway(t, Options{CameraError: domain.ErrPermissionDenied})

	_, err := g.AcquireCamera(context.Background(), cameraConstraints())
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestAcquireCameraTimesOut(t *testing.T) {
	g := newGateway(t, Options{AcquireLatency: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.AcquireCamera(ctx, cameraConstraints())
	assert.ErrorIs(t, err, domain.ErrAcquireTimeout)
}

func TestAcquireScreenShare(t *testing.T) {
	g := newGateway(t, Options{})

	h, err := g.AcquireScreenShare(context.Background(), ports.ScreenConstraints{CaptureAudio: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.SourceScreen, h.Source)
	assert.Len(t, h.Tracks(), 2)
	assert.Len(t, h.VideoTracks(), 1) // screen track counts as video
}

func TestAcquireScreenShareInjectedError(t *testing.T) {
	g := newGateway(t, Options{ScreenError: domain.ErrUserCancelled})

	_, err := g.AcquireScreenShare(context.Background(), ports.ScreenConstraints{}, nil)
	assert.ErrorIs(t, err, domain.ErrUserCancelled)
}

func TestReleaseStopsTracksWithoutEndedCallback(t *testing.T) {
	g := newGateway(t, Options{})

	endedFired := false
	h, err := g.AcquireScreenShare(context.Background(), ports.ScreenConstraints{}, func() { endedFired = true })
	require.NoError(t, err)

	g.Release(h)
	assert.True(t, h.Released())
	assert.False(t, h.Live())
	// Self-initiated release must not look like an external share end.
	assert.False(t, endedFired)
}

func TestReleaseNilIsSafe(t *testing.T) {
	g := newGateway(t, Options{})
	g.Release(nil)
}

func TestEndScreenShareFiresCallback(t *testing.T) {
	g := newGateway(t, Options{})

	ended := make(chan struct{})
	h, err := g.AcquireScreenShare(context.Background(), ports.ScreenConstraints{}, func() { close(ended) })
	require.NoError(t, err)

	require.True(t, g.EndScreenShare(h.ID))
	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("ended callback never fired")
	}
	assert.False(t, h.Live())
}

func TestEndScreenShareIgnoresCameraHandles(t *testing.T) {
	g := newGateway(t, Options{})

	h, err := g.AcquireCamera(context.Background(), cameraConstraints())
	require.NoError(t, err)

	assert.False(t, g.EndScreenShare(h.ID))
	assert.False(t, g.EndScreenShare("unknown-handle"))
	assert.True(t, h.Live())
}

func TestFramePumpDeliversFrames(t *testing.T) {
	g := newGateway(t, Options{FrameInterval: time.Millisecond})

	h, err := g.AcquireCamera(context.Background(), cameraConstraints())
	require.NoError(t, err)
	defer g.Release(h)

	video := h.VideoTracks()[0]
	select {
	case frame := <-video.Frames():
		assert.Len(t, frame, 8)
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}
}

func TestFramePumpStopsOnRelease(t *testing.T) {
	g := newGateway(t, Options{FrameInterval: time.Millisecond})

	h, err := g.AcquireCamera(context.Background(), cameraConstraints())
	require.NoError(t, err)
	video := h.VideoTracks()[0]

	g.Release(h)

	// The frames channel is closed on release; drain until it reports closed.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-video.Frames():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("frames channel never closed")
		}
	}
}

func TestAcquireLatencyResolves(t *testing.T) {
	g := newGateway(t, Options{AcquireLatency: 5 * time.Millisecond})

	start := time.Now()
	_, err := g.AcquireCamera(context.Background(), cameraConstraints())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestInjectedErrorsAreDistinct(t *testing.T) {
	camErr := errors.New("camera busy")
	g := newGateway(t, Options{CameraError: camErr})

	_, err := g.AcquireCamera(context.Background(), cameraConstraints())
	assert.ErrorIs(t, err, camErr)

	_, err = g.AcquireScreenShare(context.Background(), ports.ScreenConstraints{}, nil)
	assert.NoError(t, err)
}
