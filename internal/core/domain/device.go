package domain

// DeviceState is the session's device flag record. It is mutated only by the
// session controller; everyone else gets value snapshots.
//
// Invariants: CameraOn and ScreenSharing are never simultaneously true, and
// Processing acts as a non-reentrant advisory lock over all transitions.
type DeviceState struct {
	CameraOn      bool `json:"camera_on"`
	MicOn         bool `json:"mic_on"`
	ScreenSharing bool `json:"screen_sharing"`
	Playing       bool `json:"playing"`
	Processing    bool `json:"processing"`
	Mirrored      bool `json:"mirrored"`
	VideoReady    bool `json:"video_ready"`
}

// DevicePatch is a partial DeviceState update; nil fields are left unchanged.
type DevicePatch struct {
	CameraOn      *bool
	MicOn         *bool
	ScreenSharing *bool
	Playing       *bool
	Processing    *bool
	Mirrored      *bool
	VideoReady    *bool
}

// Apply merges the patch into the state.
func (s *DeviceState) Apply(p DevicePatch) {
	if p.CameraOn != nil {
		s.CameraOn = *p.CameraOn
	}
	if p.MicOn != nil {
		s.MicOn = *p.MicOn
	}
	if p.ScreenSharing != nil {
		s.ScreenSharing = *p.ScreenSharing
	}
	if p.Playing != nil {
		s.Playing = *p.Playing
	}
	if p.Processing != nil {
		s.Processing = *p.Processing
	}
	if p.Mirrored != nil {
		s.Mirrored = *p.Mirrored
	}
	if p.VideoReady != nil {
		s.VideoReady = *p.VideoReady
	}
}

// Bool returns a pointer to b, for building DevicePatch literals.
func Bool(b bool) *bool {
	return &b
}
