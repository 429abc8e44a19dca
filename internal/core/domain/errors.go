package domain

import "errors"

var (
	ErrDeviceUnavailable  = errors.New("media device unavailable")
	ErrPermissionDenied   = errors.New("media permission denied")
	ErrAcquireTimeout     = errors.New("media acquisition timed out")
	ErrUserCancelled      = errors.New("screen share cancelled by user")
	ErrInconsistentState  = errors.New("device state inconsistent with media handle")
	ErrOperationInFlight  = errors.New("another session operation is in flight")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionClosed      = errors.New("session closed")
	ErrLivestreamNotFound = errors.New("livestream not found")
	ErrNoSourceBound      = errors.New("no source bound to playback surface")
	ErrRateLimited        = errors.New("rate limit exceeded")
)
