package http

import (
	"net/http"

	"communiconnect/internal/core/domain"
	"communiconnect/internal/core/ports"
	"communiconnect/internal/infrastructure/distributed"
	mediawebrtc "communiconnect/internal/infrastructure/media/webrtc"
	"communiconnect/pkg/errors"
	"communiconnect/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"
)

// BroadcastHandler controls the WebRTC uplink of a session. The lock is
// optional; when present at most one instance broadcasts a livestream.
type BroadcastHandler struct {
	sessions  ports.SessionManager
	publisher *mediawebrtc.PublisherService
	lock      *distributed.BroadcastLock
}

func NewBroadcastHandler(
	sessions ports.SessionManager,
	publisher *mediawebrtc.PublisherService,
	lock *distributed.BroadcastLock,
) *BroadcastHandler {
	return &BroadcastHandler{
		sessions:  sessions,
		publisher: publisher,
		lock:      lock,
	}
}

func (h *BroadcastHandler) SetupRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/sessions/:id/broadcast")
	{
		api.POST("", h.Start)
		api.POST("/answer", h.Answer)
		api.DELETE("", h.Stop)
	}
}

type StartBroadcastRequest struct {
	LivestreamID string `json:"livestream_id" binding:"required,max=100"`
}

func (h *BroadcastHandler) Start(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))
	ctrl, err := h.sessions.Get(sessionID)
	if err != nil {
		c.Error(errors.NewNotFoundError("session"))
		return
	}

	var req StartBroadcastRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}
	if err := validation.ValidateID(req.LivestreamID); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}
	livestreamID := domain.LivestreamID(req.LivestreamID)

	handle := ctrl.CurrentHandle()
	if handle == nil || handle.Simulated() {
		c.Error(errors.NewConflictError("session has no live media to broadcast"))
		return
	}

	if h.lock != nil {
		acquired, err := h.lock.Acquire(c.Request.Context(), livestreamID)
		if err != nil {
			c.Error(errors.NewInternalError("failed to acquire broadcast lock"))
			return
		}
		if !acquired {
			c.Error(errors.NewConflictError("livestream is already being broadcast"))
			return
		}
	}

	offer, err := h.publisher.StartBroadcast(c.Request.Context(), sessionID, livestreamID, handle)
	if err != nil {
		if h.lock != nil {
			_ = h.lock.Release(c.Request.Context(), livestreamID)
		}
		c.Error(errors.WrapError(err, errors.ErrCodeInternal, "failed to start broadcast", http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"offer": offer})
}

type BroadcastAnswerRequest struct {
	Answer webrtc.SessionDescription `json:"answer" binding:"required"`
}

func (h *BroadcastHandler) Answer(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	var req BroadcastAnswerRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	if err := h.publisher.HandleAnswer(sessionID, req.Answer); err != nil {
		if err == domain.ErrSessionNotFound {
			c.Error(errors.NewNotFoundError("broadcast"))
			return
		}
		c.Error(errors.WrapError(err, errors.ErrCodeInternal, "failed to apply answer", http.StatusInternalServerError))
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": true})
}

func (h *BroadcastHandler) Stop(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	livestreamID, active := h.publisher.LivestreamFor(sessionID)
	h.publisher.StopBroadcast(sessionID)
	if active && h.lock != nil {
		_ = h.lock.Release(c.Request.Context(), livestreamID)
	}
	c.JSON(http.StatusOK, gin.H{"stopped": true})
}
