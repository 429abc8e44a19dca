package domain

import (
	"sync"
	"time"
)

type HandleID string
type TrackID string
type SessionID string

type TrackKind string

const (
	TrackKindAudio  TrackKind = "audio"
	TrackKindVideo  TrackKind = "video"
	TrackKindScreen TrackKind = "screen"
)

type TrackState string

const (
	TrackStateLive  TrackState = "live"
	TrackStateEnded TrackState = "ended"
)

type HandleSource string

const (
	SourceCamera    HandleSource = "camera"
	SourceScreen    HandleSource = "screen"
	SourceSimulated HandleSource = "simulated"
)

// Track is a single audio or video track owned by a MediaStreamHandle.
// Frames are opaque encoded payloads pushed by the capture side and
// drained by whoever forwards the track (playback surface, uplink).
type Track struct {
	ID   TrackID
	Kind TrackKind

	mu      sync.Mutex
	enabled bool
	state   TrackState
	frames  chan []byte
	onEnded func()
}

func NewTrack(id TrackID, kind TrackKind) *Track {
	return &Track{
		ID:      id,
		Kind:    kind,
		enabled: true,
		state:   TrackStateLive,
		frames:  make(chan []byte, 64),
	}
}

// Stop ends the track. Safe to call more than once.
func (t *Track) Stop() {
	t.mu.Lock()
	if t.state == TrackStateEnded {
		t.mu.Unlock()
		return
	}
	t.state = TrackStateEnded
	close(t.frames)
	ended := t.onEnded
	t.mu.Unlock()

	if ended != nil {
		ended()
	}
}

func (t *Track) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == TrackStateLive
}

func (t *Track) State() TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Track) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

func (t *Track) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// OnEnded registers a callback fired once when the track stops.
func (t *Track) OnEnded(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEnded = fn
}

// WriteFrame pushes an encoded frame into the track. Frames written to an
// ended or disabled track are dropped, as are frames nobody is draining.
func (t *Track) WriteFrame(frame []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TrackStateLive || !t.enabled {
		return
	}
	select {
	case t.frames <- frame:
	default:
	}
}

// Frames returns the channel the track's frames are delivered on.
// The channel is closed when the track stops.
func (t *Track) Frames() <-chan []byte {
	return t.frames
}

// MediaStreamHandle is the ownership token for a set of live tracks obtained
// from the camera, microphone or screen capture. At most one handle is
// current per session; it is released whenever superseded or on teardown.
type MediaStreamHandle struct {
	ID        HandleID
	Source    HandleSource
	CreatedAt time.Time

	mu       sync.Mutex
	tracks   []*Track
	released bool
}

func NewMediaStreamHandle(id HandleID, source HandleSource, tracks ...*Track) *MediaStreamHandle {
	return &MediaStreamHandle{
		ID:        id,
		Source:    source,
		CreatedAt: time.Now(),
		tracks:    tracks,
	}
}

// NewSimulatedHandle returns a synthetic handle with no real tracks. It keeps
// the session in a presentable "live" state when no device API is available.
func NewSimulatedHandle(id HandleID) *MediaStreamHandle {
	return &MediaStreamHandle{
		ID:        id,
		Source:    SourceSimulated,
		CreatedAt: time.Now(),
	}
}

func (h *MediaStreamHandle) Simulated() bool {
	return h.Source == SourceSimulated
}

func (h *MediaStreamHandle) Tracks() []*Track {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Track, len(h.tracks))
	copy(out, h.tracks)
	return out
}

func (h *MediaStreamHandle) AudioTracks() []*Track {
	return h.tracksOfKind(TrackKindAudio)
}

func (h *MediaStreamHandle) VideoTracks() []*Track {
	var out []*Track
	for _, t := range h.Tracks() {
		if t.Kind == TrackKindVideo || t.Kind == TrackKindScreen {
			out = append(out, t)
		}
	}
	return out
}

func (h *MediaStreamHandle) tracksOfKind(kind TrackKind) []*Track {
	var out []*Track
	for _, t := range h.Tracks() {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// Live reports whether every track of the handle is still live. A handle
// with any ended track is stale and must be released. Simulated handles
// have no tracks and count as live until released.
func (h *MediaStreamHandle) Live() bool {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return false
	}
	tracks := make([]*Track, len(h.tracks))
	copy(tracks, h.tracks)
	h.mu.Unlock()

	for _, t := range tracks {
		if !t.Live() {
			return false
		}
	}
	return true
}

// Release stops every track owned by the handle. Idempotent.
func (h *MediaStreamHandle) Release() {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return
	}
	h.released = true
	tracks := make([]*Track, len(h.tracks))
	copy(tracks, h.tracks)
	h.mu.Unlock()

	for _, t := range tracks {
		t.Stop()
	}
}

func (h *MediaStreamHandle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}
