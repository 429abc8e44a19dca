package domain

import "time"

type LivestreamID string

// Livestream is the session target being viewed or broadcast. The session
// controller treats it as read-only metadata; viewer counts and lifecycle
// are maintained by the livestream service.
type Livestream struct {
	ID          LivestreamID `json:"id"`
	Title       string       `json:"title"`
	Streamer    string       `json:"streamer"`
	Category    string       `json:"category"`
	ViewerCount int          `json:"viewer_count"`
	Active      bool         `json:"active"`
	StartedAt   time.Time    `json:"started_at"`
}
