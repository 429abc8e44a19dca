package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"communiconnect/internal/core/domain"
	"communiconnect/internal/core/ports"
	"communiconnect/pkg/utils"

	"go.uber.org/zap"
)

// ControllerConfig carries the timing knobs of the session state machine.
type ControllerConfig struct {
	AcquireTimeout      time.Duration
	RestartDelay        time.Duration
	SelfHealDelay       time.Duration
	ConsistencyInterval time.Duration
	Camera              ports.CameraConstraints
	Screen              ports.ScreenConstraints
}

func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		AcquireTimeout:      8 * time.Second,
		RestartDelay:        1 * time.Second,
		SelfHealDelay:       500 * time.Millisecond,
		ConsistencyInterval: 5 * time.Second,
		Camera:              ports.CameraConstraints{Width: 1280, Height: 720, FrameRate: 30, Audio: true},
	}
}

// sessionController sequences device acquisition, release and mode
// transitions for one live session. All operations funnel through the
// non-reentrant processing lock; an entry point that finds it held mutates
// nothing and returns domain.ErrOperationInFlight.
//
// Failure policy: camera failures fall back to a simulated handle, screen
// share failures fall back to restarting the camera. No failure reaches the
// caller as a fatal error; everything is logged and recovered locally.
type sessionController struct {
	id           domain.SessionID
	livestreamID domain.LivestreamID
	author       string

	cfg      ControllerConfig
	gateway  ports.MediaGateway
	binder   *PlaybackBinder
	store    *DeviceStateStore
	sched    ports.Scheduler
	recorder ports.SessionRecorder
	chat     ports.ChatService
	logger   *zap.SugaredLogger

	processing atomic.Bool
	closed     atomic.Bool

	mu                sync.Mutex
	cancelRestart     func()
	cancelConsistency func()
}

func NewSessionController(
	id domain.SessionID,
	livestreamID domain.LivestreamID,
	author string,
	cfg ControllerConfig,
	gateway ports.MediaGateway,
	binder *PlaybackBinder,
	store *DeviceStateStore,
	sched ports.Scheduler,
	recorder ports.SessionRecorder,
	chat ports.ChatService,
	logger *zap.SugaredLogger,
) ports.SessionController {
	c := &sessionController{
		id:           id,
		livestreamID: livestreamID,
		author:       author,
		cfg:          cfg,
		gateway:      gateway,
		binder:       binder,
		store:        store,
		sched:        sched,
		recorder:     recorder,
		chat:         chat,
		logger:       logger,
	}
	store.SetSurfaceProbe(binder.Bound)
	if cfg.ConsistencyInterval > 0 {
		c.scheduleConsistency()
	}
	recorder.RecordSessionOpened()
	return c
}

// tryBegin takes the processing lock. A failed attempt is a logged no-op,
// not an error condition for the session itself.
func (c *sessionController) tryBegin(op string) bool {
	if !c.processing.CompareAndSwap(false, true) {
		c.logger.Infow("operation skipped, another in flight", "session_id", c.id, "op", op)
		c.recorder.RecordSkippedBusy(op)
		return false
	}
	c.store.Set(domain.DevicePatch{Processing: domain.Bool(true)})
	return true
}

func (c *sessionController) end() {
	c.store.Set(domain.DevicePatch{Processing: domain.Bool(false)})
	c.processing.Store(false)
	c.consistencyCheck()
}

func (c *sessionController) StartCamera(ctx context.Context) error {
	if c.closed.Load() {
		return domain.ErrSessionClosed
	}
	if !c.tryBegin("start_camera") {
		return domain.ErrOperationInFlight
	}
	defer c.end()
	c.recorder.RecordOp("start_camera")
	return c.startCameraLocked(ctx)
}

func (c *sessionController) startCameraLocked(ctx context.Context) error {
	snap := c.store.Snapshot()
	if snap.CameraOn && !snap.ScreenSharing {
		if h := c.store.Handle(); h != nil && (h.Simulated() || h.Live()) {
			c.logger.Debugw("camera already on", "session_id", c.id)
			return nil
		}
	}

	// Previous hardware claim is fully released before a new one is made.
	c.releaseCurrentLocked()
	c.resetFlagsLocked()

	acquireCtx, cancel := context.WithTimeout(ctx, c.cfg.AcquireTimeout)
	defer cancel()

	started := c.sched.Now()
	h, err := c.gateway.AcquireCamera(acquireCtx, c.cfg.Camera)
	if err != nil {
		c.recorder.RecordAcquire("camera", "error", c.sched.Now().Sub(started))
		c.logger.Warnw("camera acquisition failed, falling back to simulated stream",
			"session_id", c.id, "error", err)
		c.fallbackSimulatedLocked()
		return nil
	}
	c.recorder.RecordAcquire("camera", "ok", c.sched.Now().Sub(started))

	c.store.SetHandle(h)
	if err := c.binder.Bind(ctx, h, c.markVideoReady); err != nil {
		c.logger.Warnw("camera playback failed, falling back to simulated stream",
			"session_id", c.id, "handle_id", h.ID, "error", err)
		c.binder.Unbind()
		c.gateway.Release(h)
		c.store.SetHandle(nil)
		c.fallbackSimulatedLocked()
		return nil
	}

	c.store.Set(domain.DevicePatch{
		CameraOn:      domain.Bool(true),
		MicOn:         domain.Bool(true),
		Playing:       domain.Bool(true),
		ScreenSharing: domain.Bool(false),
	})
	return nil
}

// fallbackSimulatedLocked keeps the session presentable when no real camera
// stream can be established.
func (c *sessionController) fallbackSimulatedLocked() {
	c.recorder.RecordFallback("camera_simulated")

	h := domain.NewSimulatedHandle(domain.HandleID(utils.GenerateHandleID()))
	c.store.SetHandle(h)
	c.binder.Attach(h, c.markVideoReady)
	c.store.Set(domain.DevicePatch{
		CameraOn:      domain.Bool(true),
		MicOn:         domain.Bool(true),
		Playing:       domain.Bool(true),
		ScreenSharing: domain.Bool(false),
		VideoReady:    domain.Bool(true),
	})
}

func (c *sessionController) markVideoReady() {
	c.store.Set(domain.DevicePatch{VideoReady: domain.Bool(true)})
}

func (c *sessionController) StopCamera(ctx context.Context) error {
	if c.closed.Load() {
		return domain.ErrSessionClosed
	}
	if !c.tryBegin("stop_camera") {
		return domain.ErrOperationInFlight
	}
	defer c.end()
	c.recorder.RecordOp("stop_camera")
	c.stopLocked()
	return nil
}

// stopLocked is the unconditional full release: handle stopped, surface
// unbound, every flag back to off. Idempotent.
func (c *sessionController) stopLocked() {
	c.cancelScheduledRestart()
	c.releaseCurrentLocked()
	c.resetFlagsLocked()
}

func (c *sessionController) releaseCurrentLocked() {
	c.binder.Unbind()
	if h := c.store.Handle(); h != nil {
		c.gateway.Release(h)
	}
	c.store.SetHandle(nil)
}

func (c *sessionController) resetFlagsLocked() {
	c.store.Set(domain.DevicePatch{
		CameraOn:      domain.Bool(false),
		MicOn:         domain.Bool(false),
		ScreenSharing: domain.Bool(false),
		Playing:       domain.Bool(false),
		Mirrored:      domain.Bool(false),
		VideoReady:    domain.Bool(false),
	})
}

func (c *sessionController) ToggleCamera(ctx context.Context) error {
	if c.closed.Load() {
		return domain.ErrSessionClosed
	}
	if !c.tryBegin("toggle_camera") {
		return domain.ErrOperationInFlight
	}
	defer c.end()
	c.recorder.RecordOp("toggle_camera")

	snap := c.store.Snapshot()
	if snap.ScreenSharing {
		// Camera control is disabled while sharing; stop the share first.
		c.logger.Infow("camera toggle ignored while screen sharing", "session_id", c.id)
		return nil
	}

	h := c.store.Handle()
	switch {
	case snap.CameraOn && h != nil && (h.Simulated() || h.Live()):
		c.stopLocked()
		return nil
	case !snap.CameraOn:
		return c.startCameraLocked(ctx)
	default:
		// Flags claim a camera but no usable handle backs it. Force a stop
		// and retry after a short delay; this is self-healing, not an error.
		c.logger.Warnw("camera flag set without live handle, forcing restart",
			"session_id", c.id)
		c.stopLocked()
		c.scheduleRestart(c.cfg.SelfHealDelay)
		return nil
	}
}

func (c *sessionController) ToggleMic(ctx context.Context) error {
	if c.closed.Load() {
		return domain.ErrSessionClosed
	}
	if !c.tryBegin("toggle_mic") {
		return domain.ErrOperationInFlight
	}
	defer c.end()
	c.recorder.RecordOp("toggle_mic")

	snap := c.store.Snapshot()
	h := c.store.Handle()
	if h != nil && !h.Simulated() && !snap.ScreenSharing {
		for _, t := range h.AudioTracks() {
			t.SetEnabled(!snap.MicOn)
		}
	}
	// The display flag flips regardless of handle reality so the simulated
	// path still reflects UI state.
	c.store.Set(domain.DevicePatch{MicOn: domain.Bool(!snap.MicOn)})
	return nil
}

func (c *sessionController) ToggleScreenShare(ctx context.Context) error {
	if c.closed.Load() {
		return domain.ErrSessionClosed
	}
	if !c.tryBegin("toggle_screen_share") {
		return domain.ErrOperationInFlight
	}
	defer c.end()
	c.recorder.RecordOp("toggle_screen_share")

	snap := c.store.Snapshot()
	if snap.ScreenSharing {
		c.stopShareLocked()
		return nil
	}

	// Camera handle goes away before the screen claim is made.
	c.releaseCurrentLocked()
	c.resetFlagsLocked()

	started := c.sched.Now()
	h, err := c.gateway.AcquireScreenShare(ctx, c.cfg.Screen, c.onShareEnded)
	if err != nil {
		c.recorder.RecordAcquire("screen", "error", c.sched.Now().Sub(started))
		c.logger.Warnw("screen share acquisition failed, restarting camera",
			"session_id", c.id, "error", err)
		// Screen share has no simulated substitute.
		c.recorder.RecordFallback("camera_restart")
		return c.startCameraLocked(ctx)
	}
	c.recorder.RecordAcquire("screen", "ok", c.sched.Now().Sub(started))

	c.store.SetHandle(h)
	if err := c.binder.Bind(ctx, h, c.markVideoReady); err != nil {
		c.logger.Warnw("screen share playback failed, restarting camera",
			"session_id", c.id, "handle_id", h.ID, "error", err)
		c.binder.Unbind()
		c.gateway.Release(h)
		c.store.SetHandle(nil)
		c.recorder.RecordFallback("camera_restart")
		return c.startCameraLocked(ctx)
	}

	c.store.Set(domain.DevicePatch{
		ScreenSharing: domain.Bool(true),
		CameraOn:      domain.Bool(false),
		MicOn:         domain.Bool(false),
		Playing:       domain.Bool(true),
	})
	return nil
}

// stopShareLocked tears the share down and falls back to the camera after a
// fixed delay.
func (c *sessionController) stopShareLocked() {
	c.releaseCurrentLocked()
	c.resetFlagsLocked()
	c.scheduleRestart(c.cfg.RestartDelay)
}

// onShareEnded fires when sharing stops from the OS-level picker rather than
// from the app. It races user-initiated toggles; both funnel through the
// processing lock and the loser is skipped.
func (c *sessionController) onShareEnded() {
	if c.closed.Load() {
		return
	}
	if !c.tryBegin("share_ended") {
		return
	}
	defer c.end()

	snap := c.store.Snapshot()
	if !snap.ScreenSharing {
		return
	}
	c.logger.Infow("screen share ended externally", "session_id", c.id)
	c.stopShareLocked()
}

func (c *sessionController) ToggleMirror(ctx context.Context) error {
	if c.closed.Load() {
		return domain.ErrSessionClosed
	}
	if !c.tryBegin("toggle_mirror") {
		return domain.ErrOperationInFlight
	}
	defer c.end()
	c.recorder.RecordOp("toggle_mirror")

	snap := c.store.Snapshot()
	c.store.Set(domain.DevicePatch{Mirrored: domain.Bool(!snap.Mirrored)})
	return nil
}

func (c *sessionController) Dispatch(ctx context.Context, op domain.Op) error {
	switch op.Kind {
	case domain.OpStartCamera:
		return c.StartCamera(ctx)
	case domain.OpStopCamera:
		return c.StopCamera(ctx)
	case domain.OpToggleCamera:
		return c.ToggleCamera(ctx)
	case domain.OpToggleMic:
		return c.ToggleMic(ctx)
	case domain.OpToggleScreenShare:
		return c.ToggleScreenShare(ctx)
	case domain.OpToggleMirror:
		return c.ToggleMirror(ctx)
	case domain.OpSubmitChat:
		if c.chat == nil {
			return fmt.Errorf("chat is not configured for session %s", c.id)
		}
		_, err := c.chat.Submit(ctx, c.livestreamID, c.author, op.Text)
		return err
	default:
		return fmt.Errorf("unknown op kind: %s", op.Kind)
	}
}

// consistencyCheck reconciles declared device flags against the actual
// handle. It runs after every operation and on the background interval, and
// skips entirely while an operation is in flight.
func (c *sessionController) consistencyCheck() {
	if c.processing.Load() || c.closed.Load() {
		return
	}
	if c.store.IsConsistent() {
		return
	}

	snap := c.store.Snapshot()
	if snap.CameraOn && c.store.Handle() == nil {
		// Conservative self-correction: force the flags off rather than
		// restart, to avoid acquisition loops.
		c.logger.Warnw("device flags claim a camera with no handle, forcing off",
			"session_id", c.id)
		c.store.Set(domain.DevicePatch{
			CameraOn: domain.Bool(false),
			Playing:  domain.Bool(false),
		})
		c.recorder.RecordConsistencyCorrection()
		return
	}
	c.logger.Warnw("inconsistent device state", "session_id", c.id,
		"camera_on", snap.CameraOn, "screen_sharing", snap.ScreenSharing,
		"playing", snap.Playing)
}

func (c *sessionController) scheduleRestart(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelRestart != nil {
		c.cancelRestart()
	}
	c.cancelRestart = c.sched.AfterFunc(d, func() {
		if err := c.StartCamera(context.Background()); err != nil {
			c.logger.Debugw("scheduled camera restart skipped",
				"session_id", c.id, "error", err)
		}
	})
}

func (c *sessionController) cancelScheduledRestart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelRestart != nil {
		c.cancelRestart()
		c.cancelRestart = nil
	}
}

func (c *sessionController) scheduleConsistency() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelConsistency = c.sched.AfterFunc(c.cfg.ConsistencyInterval, func() {
		c.consistencyCheck()
		if !c.closed.Load() {
			c.scheduleConsistency()
		}
	})
}

func (c *sessionController) State() domain.DeviceState {
	return c.store.Snapshot()
}

func (c *sessionController) CurrentHandle() *domain.MediaStreamHandle {
	return c.store.Handle()
}

func (c *sessionController) SetVolume(v float64) error {
	c.binder.SetVolume(v)
	return nil
}

func (c *sessionController) SetMuted(muted bool) error {
	c.binder.SetMuted(muted)
	return nil
}

func (c *sessionController) RequestFullscreen() error {
	return c.binder.RequestFullscreen()
}

// Close releases everything unconditionally, even if an operation is in
// flight. Safe to call more than once.
func (c *sessionController) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	if c.cancelRestart != nil {
		c.cancelRestart()
		c.cancelRestart = nil
	}
	if c.cancelConsistency != nil {
		c.cancelConsistency()
		c.cancelConsistency = nil
	}
	c.mu.Unlock()

	c.binder.Unbind()
	if h := c.store.Handle(); h != nil {
		c.gateway.Release(h)
	}
	c.store.Reset()
	c.recorder.RecordSessionClosed()
	c.logger.Infow("session closed", "session_id", c.id)
	return nil
}
