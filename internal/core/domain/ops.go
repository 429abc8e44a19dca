package domain

// OpKind enumerates the closed set of session operations. UI events and API
// requests are translated into ops and dispatched to the session controller.
type OpKind string

const (
	OpStartCamera       OpKind = "start_camera"
	OpStopCamera        OpKind = "stop_camera"
	OpToggleCamera      OpKind = "toggle_camera"
	OpToggleMic         OpKind = "toggle_mic"
	OpToggleScreenShare OpKind = "toggle_screen_share"
	OpToggleMirror      OpKind = "toggle_mirror"
	OpSubmitChat        OpKind = "submit_chat"
)

// Op is a tagged operation variant. Text is only meaningful for OpSubmitChat.
type Op struct {
	Kind OpKind `json:"kind"`
	Text string `json:"text,omitempty"`
}

// Valid reports whether the op kind is one of the known variants.
func (o Op) Valid() bool {
	switch o.Kind {
	case OpStartCamera, OpStopCamera, OpToggleCamera, OpToggleMic,
		OpToggleScreenShare, OpToggleMirror, OpSubmitChat:
		return true
	}
	return false
}
