package sim

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"communiconnect/internal/core/domain"
	"communiconnect/internal/core/ports"
	"communiconnect/pkg/utils"

	"go.uber.org/zap"
)

// Options tunes the simulated device layer. Failure injection mirrors the
// ways a real capture stack refuses: busy device, denied permission, a user
// dismissing the share picker, or a hang that outlives the acquire timeout.
type Options struct {
	// AcquireLatency is how long an acquisition takes before it resolves.
	AcquireLatency time.Duration

	// CameraError, when set, fails every camera acquisition with this error.
	CameraError error

	// ScreenError, when set, fails every screen acquisition with this error.
	ScreenError error

	// FrameInterval is the synthetic frame pump period. Zero disables the
	// pump; tracks still exist and carry state.
	FrameInterval time.Duration
}

// Gateway is a device layer that manufactures media handles with synthetic
// frame pumps instead of touching real hardware. It implements
// ports.MediaGateway and is the default backend for headless deployments.
type Gateway struct {
	opts   Options
	logger *zap.SugaredLogger

	mu      sync.Mutex
	pumps   map[domain.HandleID]chan struct{}
	handles map[domain.HandleID]*domain.MediaStreamHandle
	seq     uint32
}

func NewGateway(opts Options, logger *zap.SugaredLogger) *Gateway {
	return &Gateway{
		opts:    opts,
		logger:  logger,
		pumps:   make(map[domain.HandleID]chan struct{}),
		handles: make(map[domain.HandleID]*domain.MediaStreamHandle),
	}
}

func (g *Gateway) AcquireCamera(ctx context.Context, c ports.CameraConstraints) (*domain.MediaStreamHandle, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	if g.opts.CameraError != nil {
		return nil, g.opts.CameraError
	}

	id := domain.HandleID(utils.GenerateHandleID())
	tracks := []*domain.Track{
		domain.NewTrack(domain.TrackID(string(id)+"-video"), domain.TrackKindVideo),
	}
	if c.Audio {
		tracks = append(tracks, domain.NewTrack(domain.TrackID(string(id)+"-audio"), domain.TrackKindAudio))
	}
	h := domain.NewMediaStreamHandle(id, domain.SourceCamera, tracks...)
	g.register(h)

	g.logger.Debugw("camera acquired", "handle_id", id,
		"width", c.Width, "height", c.Height, "frame_rate", c.FrameRate)
	return h, nil
}

func (g *Gateway) AcquireScreenShare(ctx context.Context, c ports.ScreenConstraints, onEnded func()) (*domain.MediaStreamHandle, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	if g.opts.ScreenError != nil {
		return nil, g.opts.ScreenError
	}

	id := domain.HandleID(utils.GenerateHandleID())
	screen := domain.NewTrack(domain.TrackID(string(id)+"-screen"), domain.TrackKindScreen)
	if onEnded != nil {
		screen.OnEnded(onEnded)
	}
	tracks := []*domain.Track{screen}
	if c.CaptureAudio {
		tracks = append(tracks, domain.NewTrack(domain.TrackID(string(id)+"-audio"), domain.TrackKindAudio))
	}
	h := domain.NewMediaStreamHandle(id, domain.SourceScreen, tracks...)
	g.register(h)

	g.logger.Debugw("screen share acquired", "handle_id", id)
	return h, nil
}

func (g *Gateway) Release(h *domain.MediaStreamHandle) {
	if h == nil {
		return
	}
	g.stopPump(h.ID)

	g.mu.Lock()
	delete(g.handles, h.ID)
	g.mu.Unlock()

	// Release callers expect no onEnded echo for handles they let go of
	// themselves; detach callbacks before stopping tracks.
	for _, t := range h.Tracks() {
		t.OnEnded(nil)
	}
	h.Release()
	g.logger.Debugw("handle released", "handle_id", h.ID)
}

// EndScreenShare simulates the OS-level "stop sharing" control: the screen
// track ends and its registered callback fires, exactly as if the user had
// clicked the picker's stop button.
func (g *Gateway) EndScreenShare(id domain.HandleID) bool {
	g.mu.Lock()
	h, ok := g.handles[id]
	if ok {
		delete(g.handles, id)
	}
	g.mu.Unlock()

	if !ok || h.Source != domain.SourceScreen {
		return false
	}
	g.stopPump(id)
	for _, t := range h.Tracks() {
		t.Stop()
	}
	return true
}

func (g *Gateway) wait(ctx context.Context) error {
	if g.opts.AcquireLatency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(g.opts.AcquireLatency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return domain.ErrAcquireTimeout
	}
}

func (g *Gateway) register(h *domain.MediaStreamHandle) {
	g.mu.Lock()
	g.handles[h.ID] = h
	g.mu.Unlock()
	g.startPump(h)
}

// startPump feeds each live track a small synthetic frame on a fixed period
// so downstream consumers (the broadcast publisher) have bytes to move.
func (g *Gateway) startPump(h *domain.MediaStreamHandle) {
	if g.opts.FrameInterval <= 0 {
		return
	}

	stop := make(chan struct{})
	g.mu.Lock()
	g.pumps[h.ID] = stop
	g.mu.Unlock()

	go func() {
		ticker := time.NewTicker(g.opts.FrameInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				g.mu.Lock()
				g.seq++
				seq := g.seq
				g.mu.Unlock()
				frame := make([]byte, 8)
				binary.BigEndian.PutUint32(frame[:4], seq)
				binary.BigEndian.PutUint32(frame[4:], uint32(time.Now().Unix()))
				for _, t := range h.Tracks() {
					t.WriteFrame(frame)
				}
			}
		}
	}()
}

func (g *Gateway) stopPump(id domain.HandleID) {
	g.mu.Lock()
	stop, ok := g.pumps[id]
	if ok {
		delete(g.pumps, id)
	}
	g.mu.Unlock()
	if ok {
		close(stop)
	}
}
