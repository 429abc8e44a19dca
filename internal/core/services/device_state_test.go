package services

import (
	"testing"

	"communiconnect/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func cameraHandle(id string) *domain.MediaStreamHandle {
	return domain.NewMediaStreamHandle(domain.HandleID(id), domain.SourceCamera,
		domain.NewTrack(domain.TrackID(id+"-video"), domain.TrackKindVideo),
	)
}

func TestDeviceStateStoreSetAndSnapshot(t *testing.T) {
	s := NewDeviceStateStore()

	s.Set(domain.DevicePatch{CameraOn: domain.Bool(true), MicOn: domain.Bool(true)})
	snap := s.Snapshot()
	assert.True(t, snap.CameraOn)
	assert.True(t, snap.MicOn)
	assert.False(t, snap.ScreenSharing)

	// Partial patch leaves other flags untouched.
	s.Set(domain.DevicePatch{MicOn: domain.Bool(false)})
	snap = s.Snapshot()
	assert.True(t, snap.CameraOn)
	assert.False(t, snap.MicOn)
}

func TestDeviceStateStoreReset(t *testing.T) {
	s := NewDeviceStateStore()
	s.Set(domain.DevicePatch{CameraOn: domain.Bool(true), Playing: domain.Bool(true)})
	s.SetHandle(cameraHandle("h1"))

	s.Reset()
	assert.Equal(t, domain.DeviceState{}, s.Snapshot())
	assert.Nil(t, s.Handle())
}

func TestIsConsistent(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*DeviceStateStore)
		expect bool
	}{
		{
			name:   "all off",
			setup:  func(s *DeviceStateStore) {},
			expect: true,
		},
		{
			name: "camera on with live handle",
			setup: func(s *DeviceStateStore) {
				s.Set(domain.DevicePatch{CameraOn: domain.Bool(true)})
				s.SetHandle(cameraHandle("h1"))
			},
			expect: true,
		},
		{
			name: "camera on without handle",
			setup: func(s *DeviceStateStore) {
				s.Set(domain.DevicePatch{CameraOn: domain.Bool(true)})
			},
			expect: false,
		},
		{
			name: "camera on with released handle",
			setup: func(s *DeviceStateStore) {
				h := cameraHandle("h1")
				h.Release()
				s.Set(domain.DevicePatch{CameraOn: domain.Bool(true)})
				s.SetHandle(h)
			},
			expect: false,
		},
		{
			name: "camera on with simulated handle",
			setup: func(s *DeviceStateStore) {
				s.Set(domain.DevicePatch{CameraOn: domain.Bool(true)})
				s.SetHandle(domain.NewSimulatedHandle("sim"))
			},
			expect: true,
		},
		{
			name: "camera and screen share both claimed",
			setup: func(s *DeviceStateStore) {
				s.Set(domain.DevicePatch{
					CameraOn:      domain.Bool(true),
					ScreenSharing: domain.Bool(true),
				})
				s.SetHandle(cameraHandle("h1"))
			},
			expect: false,
		},
		{
			name: "screen sharing with camera handle",
			setup: func(s *DeviceStateStore) {
				s.Set(domain.DevicePatch{ScreenSharing: domain.Bool(true)})
				s.SetHandle(cameraHandle("h1"))
			},
			expect: false,
		},
		{
			name: "playing with unbound surface",
			setup: func(s *DeviceStateStore) {
				s.SetSurfaceProbe(func() bool { return false })
				s.Set(domain.DevicePatch{Playing: domain.Bool(true)})
			},
			expect: false,
		},
		{
			name: "playing with bound surface",
			setup: func(s *DeviceStateStore) {
				s.SetSurfaceProbe(func() bool { return true })
				s.Set(domain.DevicePatch{Playing: domain.Bool(true)})
			},
			expect: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewDeviceStateStore()
			tt.setup(s)
			assert.Equal(t, tt.expect, s.IsConsistent())
		})
	}
}
