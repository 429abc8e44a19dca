package ports

import (
	"context"
	"time"

	"communiconnect/internal/core/domain"
)

// CameraConstraints describe the capture parameters requested from the
// camera/microphone device.
type CameraConstraints struct {
	Width     int
	Height    int
	FrameRate int
	Audio     bool
}

// ScreenConstraints describe the screen capture request.
type ScreenConstraints struct {
	CaptureAudio bool
}

// MediaGateway wraps the platform media capture surface. Acquisition may
// prompt OS-level permission dialogs; unavailability is a first-class,
// non-fatal condition the caller recovers from locally.
type MediaGateway interface {
	// AcquireCamera obtains a camera (and optionally microphone) handle.
	// Implementations race the platform call against the configured timeout
	// and fail with domain.ErrAcquireTimeout when it elapses.
	AcquireCamera(ctx context.Context, c CameraConstraints) (*domain.MediaStreamHandle, error)

	// AcquireScreenShare obtains a screen capture handle. No timeout is
	// applied: the picker is a modal the user may take time on. onEnded is
	// fired if sharing stops outside the application.
	AcquireScreenShare(ctx context.Context, c ScreenConstraints, onEnded func()) (*domain.MediaStreamHandle, error)

	// Release stops every track owned by the handle. Idempotent and nil-safe.
	Release(h *domain.MediaStreamHandle)
}

// VideoSurface is the renderable video element a live handle is bound to.
type VideoSurface interface {
	SetSource(h *domain.MediaStreamHandle) error
	ClearSource()
	Source() *domain.MediaStreamHandle

	Play(ctx context.Context) error
	Pause()

	SetVolume(v float64)
	SetMuted(muted bool)
	Muted() bool
	RequestFullscreen() error

	// OnLoadedMetadata registers a one-shot callback fired when the bound
	// source's metadata becomes available. Replaced on every bind.
	OnLoadedMetadata(fn func())
	OnError(fn func(error))
}

// Scheduler abstracts delayed task execution so fixed-delay fallbacks can be
// driven deterministically in tests.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
	Now() time.Time
}

// SessionRecorder receives session state machine observations.
type SessionRecorder interface {
	RecordOp(op string)
	RecordSkippedBusy(op string)
	RecordAcquire(device, result string, d time.Duration)
	RecordFallback(kind string)
	RecordConsistencyCorrection()
	RecordSessionOpened()
	RecordSessionClosed()
}
