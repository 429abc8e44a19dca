package services

import (
	"sync"

	"communiconnect/internal/core/domain"
)

// DeviceStateStore owns the session's device flag record and the currently
// bound media handle. Only the session controller mutates it; everyone else
// reads snapshots.
type DeviceStateStore struct {
	mu     sync.RWMutex
	state  domain.DeviceState
	handle *domain.MediaStreamHandle

	// surfaceBound probes whether the playback surface has a bound source.
	// Optional; when nil the playing invariant is not checked.
	surfaceBound func() bool
}

func NewDeviceStateStore() *DeviceStateStore {
	return &DeviceStateStore{}
}

// SetSurfaceProbe wires the playback-surface probe used by IsConsistent.
func (s *DeviceStateStore) SetSurfaceProbe(fn func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surfaceBound = fn
}

// Set merges a partial update into the state.
func (s *DeviceStateStore) Set(patch domain.DevicePatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Apply(patch)
}

// SetHandle swaps the current media handle. It does not release the old one;
// release ordering belongs to the controller.
func (s *DeviceStateStore) SetHandle(h *domain.MediaStreamHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle = h
}

func (s *DeviceStateStore) Handle() *domain.MediaStreamHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handle
}

// Reset returns the record to the all-off initial state and drops the handle
// reference.
func (s *DeviceStateStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.DeviceState{}
	s.handle = nil
}

// Snapshot returns a copy of the current state.
func (s *DeviceStateStore) Snapshot() domain.DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsConsistent evaluates the store invariants. It reports, never panics:
//
//	(a) cameraOn implies a handle exists that is live or simulated
//	(b) screenSharing implies a live screen handle exists
//	(c) playing implies the playback surface has a bound source
//	(d) cameraOn and screenSharing are never simultaneously true
func (s *DeviceStateStore) IsConsistent() bool {
	s.mu.RLock()
	state := s.state
	handle := s.handle
	probe := s.surfaceBound
	s.mu.RUnlock()

	if state.CameraOn && state.ScreenSharing {
		return false
	}
	if state.CameraOn {
		if handle == nil {
			return false
		}
		if !handle.Simulated() && !handle.Live() {
			return false
		}
	}
	if state.ScreenSharing {
		if handle == nil || handle.Source != domain.SourceScreen || !handle.Live() {
			return false
		}
	}
	if state.Playing && probe != nil && !probe() {
		return false
	}
	return true
}
