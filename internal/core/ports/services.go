package ports

import (
	"context"

	"communiconnect/internal/core/domain"
)

// SessionController sequences media acquisition, release and mode transitions
// for one live session. All operations serialize through a non-reentrant
// processing lock: an operation entered while another is in flight performs
// no state mutation and returns domain.ErrOperationInFlight.
type SessionController interface {
	StartCamera(ctx context.Context) error
	StopCamera(ctx context.Context) error
	ToggleCamera(ctx context.Context) error
	ToggleMic(ctx context.Context) error
	ToggleScreenShare(ctx context.Context) error
	ToggleMirror(ctx context.Context) error

	// Dispatch routes a tagged op variant to the matching operation.
	Dispatch(ctx context.Context, op domain.Op) error

	State() domain.DeviceState
	CurrentHandle() *domain.MediaStreamHandle

	SetVolume(v float64) error
	SetMuted(muted bool) error
	RequestFullscreen() error

	// Close releases the current handle unconditionally and resets all flags.
	Close(ctx context.Context) error
}

type SessionManager interface {
	Open(ctx context.Context, livestreamID domain.LivestreamID, author string) (domain.SessionID, SessionController, error)
	Get(id domain.SessionID) (SessionController, error)
	Close(ctx context.Context, id domain.SessionID) error
	CloseAll(ctx context.Context)
}

type ChatService interface {
	// Submit trims and validates text, then appends a locally authored
	// message. Whitespace-only submissions produce no message and no error.
	Submit(ctx context.Context, livestreamID domain.LivestreamID, author, text string) (*domain.ChatMessage, error)

	// Append records an externally arriving message.
	Append(ctx context.Context, msg *domain.ChatMessage) error

	History(ctx context.Context, livestreamID domain.LivestreamID, limit int) ([]*domain.ChatMessage, error)
}

// ChatFeed fans locally authored messages out to other interested parties
// (websocket clients, other instances).
type ChatFeed interface {
	Publish(ctx context.Context, msg *domain.ChatMessage) error
}

type LivestreamService interface {
	Create(ctx context.Context, title, streamer, category string) (*domain.Livestream, error)
	Get(ctx context.Context, id domain.LivestreamID) (*domain.Livestream, error)
	List(ctx context.Context) ([]*domain.Livestream, error)
	End(ctx context.Context, id domain.LivestreamID) error
	SetViewerCount(ctx context.Context, id domain.LivestreamID, count int) error
}
