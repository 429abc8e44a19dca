package http

import (
	"net/http"

	"communiconnect/internal/core/domain"
	"communiconnect/internal/core/ports"
	"communiconnect/pkg/errors"
	"communiconnect/pkg/tracing"
	"communiconnect/pkg/validation"

	"github.com/gin-gonic/gin"
)

// SessionHandler exposes the session state machine over HTTP. Every control
// route resolves the session and runs one operation; busy skips surface as
// 409 so a client can simply retry.
type SessionHandler struct {
	sessions ports.SessionManager
}

func NewSessionHandler(sessions ports.SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) SetupRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/sessions")
	{
		api.POST("", h.Open)
		api.GET("/:id/state", h.State)
		api.DELETE("/:id", h.Close)

		api.POST("/:id/camera/start", h.op(domain.OpStartCamera))
		api.POST("/:id/camera/stop", h.op(domain.OpStopCamera))
		api.POST("/:id/camera/toggle", h.op(domain.OpToggleCamera))
		api.POST("/:id/mic/toggle", h.op(domain.OpToggleMic))
		api.POST("/:id/screenshare/toggle", h.op(domain.OpToggleScreenShare))
		api.POST("/:id/mirror/toggle", h.op(domain.OpToggleMirror))

		api.POST("/:id/ops", h.Dispatch)

		api.PUT("/:id/volume", h.SetVolume)
		api.PUT("/:id/muted", h.SetMuted)
		api.POST("/:id/fullscreen", h.RequestFullscreen)
	}
}

type OpenSessionRequest struct {
	LivestreamID string `json:"livestream_id" binding:"required,max=100"`
	Author       string `json:"author" binding:"required,max=50"`
}

func (h *SessionHandler) Open(c *gin.Context) {
	var req OpenSessionRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}
	if err := validation.ValidateID(req.LivestreamID); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateAuthor(req.Author); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	id, ctrl, err := h.sessions.Open(c.Request.Context(), domain.LivestreamID(req.LivestreamID), req.Author)
	if err != nil {
		c.Error(errors.WrapError(err, errors.ErrCodeInternal, "failed to open session", http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": id,
		"state":      ctrl.State(),
	})
}

func (h *SessionHandler) State(c *gin.Context) {
	ctrl, ok := h.resolve(c)
	if !ok {
		return
	}

	handle := ctrl.CurrentHandle()
	resp := gin.H{"state": ctrl.State()}
	if handle != nil {
		resp["handle"] = gin.H{
			"id":     handle.ID,
			"source": handle.Source,
			"live":   handle.Live(),
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) Close(c *gin.Context) {
	id := domain.SessionID(c.Param("id"))
	if err := h.sessions.Close(c.Request.Context(), id); err != nil {
		c.Error(errors.NewNotFoundError("session"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

// op returns a handler that dispatches a fixed operation kind.
func (h *SessionHandler) op(kind domain.OpKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl, ok := h.resolve(c)
		if !ok {
			return
		}

		ctx, span := tracing.TraceSessionOp(c.Request.Context(), string(kind), c.Param("id"))
		defer span.End()

		if err := ctrl.Dispatch(ctx, domain.Op{Kind: kind}); err != nil {
			tracing.RecordError(ctx, err)
			h.opError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": ctrl.State()})
	}
}

type DispatchRequest struct {
	Kind string `json:"kind" binding:"required"`
	Text string `json:"text,omitempty"`
}

func (h *SessionHandler) Dispatch(c *gin.Context) {
	ctrl, ok := h.resolve(c)
	if !ok {
		return
	}

	var req DispatchRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	op := domain.Op{Kind: domain.OpKind(req.Kind), Text: req.Text}
	if !op.Valid() {
		c.Error(errors.NewInvalidInputError("unknown op kind: " + req.Kind))
		return
	}

	ctx, span := tracing.TraceSessionOp(c.Request.Context(), req.Kind, c.Param("id"))
	defer span.End()

	if err := ctrl.Dispatch(ctx, op); err != nil {
		tracing.RecordError(ctx, err)
		h.opError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": ctrl.State()})
}

type VolumeRequest struct {
	Volume float64 `json:"volume"`
}

func (h *SessionHandler) SetVolume(c *gin.Context) {
	ctrl, ok := h.resolve(c)
	if !ok {
		return
	}

	var req VolumeRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}
	if req.Volume < 0 || req.Volume > 1 {
		c.Error(errors.NewInvalidInputError("volume must be between 0 and 1"))
		return
	}

	if err := ctrl.SetVolume(req.Volume); err != nil {
		h.opError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"volume": req.Volume})
}

type MutedRequest struct {
	Muted bool `json:"muted"`
}

func (h *SessionHandler) SetMuted(c *gin.Context) {
	ctrl, ok := h.resolve(c)
	if !ok {
		return
	}

	var req MutedRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	if err := ctrl.SetMuted(req.Muted); err != nil {
		h.opError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"muted": req.Muted})
}

func (h *SessionHandler) RequestFullscreen(c *gin.Context) {
	ctrl, ok := h.resolve(c)
	if !ok {
		return
	}

	if err := ctrl.RequestFullscreen(); err != nil {
		h.opError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fullscreen": true})
}

func (h *SessionHandler) resolve(c *gin.Context) (ports.SessionController, bool) {
	id := c.Param("id")
	if err := validation.ValidateID(id); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return nil, false
	}

	ctrl, err := h.sessions.Get(domain.SessionID(id))
	if err != nil {
		c.Error(errors.NewNotFoundError("session"))
		return nil, false
	}
	return ctrl, true
}

func (h *SessionHandler) opError(c *gin.Context, err error) {
	switch err {
	case domain.ErrOperationInFlight:
		c.Error(errors.NewOperationInFlightError())
	case domain.ErrSessionClosed:
		c.Error(errors.NewConflictError("session is closed"))
	case domain.ErrRateLimited:
		c.Error(errors.NewRateLimitError())
	default:
		c.Error(errors.WrapError(err, errors.ErrCodeInternal, "operation failed", http.StatusInternalServerError))
	}
}
