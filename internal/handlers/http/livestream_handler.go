package http

import (
	"net/http"
	"strconv"

	"communiconnect/internal/core/domain"
	"communiconnect/internal/core/ports"
	"communiconnect/pkg/errors"
	"communiconnect/pkg/validation"

	"github.com/gin-gonic/gin"
)

// ChatFeedControl starts and stops the synthetic chat feed for a stream.
// Nil when the feed is disabled.
type ChatFeedControl interface {
	Start(livestreamID domain.LivestreamID)
	Stop(livestreamID domain.LivestreamID)
}

// LivestreamHandler serves the stream catalog and the chat history/submit
// REST surface. Live chat delivery runs over the websocket server; these
// routes cover catch-up and clients without a socket.
type LivestreamHandler struct {
	livestreams ports.LivestreamService
	chat        ports.ChatService
	feed        ChatFeedControl
}

func NewLivestreamHandler(livestreams ports.LivestreamService, chat ports.ChatService, feed ChatFeedControl) *LivestreamHandler {
	return &LivestreamHandler{
		livestreams: livestreams,
		chat:        chat,
		feed:        feed,
	}
}

func (h *LivestreamHandler) SetupRoutes(router gin.IRouter) {
	api := router.Group("/api/v1/livestreams")
	{
		api.POST("", h.Create)
		api.GET("", h.List)
		api.GET("/:id", h.Get)
		api.POST("/:id/end", h.End)

		api.GET("/:id/chat", h.ChatHistory)
		api.POST("/:id/chat", h.SubmitChat)
	}
}

type CreateLivestreamRequest struct {
	Title    string `json:"title" binding:"required,max=200"`
	Streamer string `json:"streamer" binding:"required,max=50"`
	Category string `json:"category" binding:"max=50"`
}

func (h *LivestreamHandler) Create(c *gin.Context) {
	var req CreateLivestreamRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	stream, err := h.livestreams.Create(c.Request.Context(), req.Title, req.Streamer, req.Category)
	if err != nil {
		c.Error(errors.WrapError(err, errors.ErrCodeInvalidInput, err.Error(), http.StatusBadRequest))
		return
	}
	if h.feed != nil {
		h.feed.Start(stream.ID)
	}
	c.JSON(http.StatusCreated, stream)
}

func (h *LivestreamHandler) List(c *gin.Context) {
	streams, err := h.livestreams.List(c.Request.Context())
	if err != nil {
		c.Error(errors.NewInternalError("failed to list livestreams"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"livestreams": streams})
}

func (h *LivestreamHandler) Get(c *gin.Context) {
	id, ok := h.streamID(c)
	if !ok {
		return
	}

	stream, err := h.livestreams.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(errors.NewNotFoundError("livestream"))
		return
	}
	c.JSON(http.StatusOK, stream)
}

func (h *LivestreamHandler) End(c *gin.Context) {
	id, ok := h.streamID(c)
	if !ok {
		return
	}

	if err := h.livestreams.End(c.Request.Context(), id); err != nil {
		c.Error(errors.NewNotFoundError("livestream"))
		return
	}
	if h.feed != nil {
		h.feed.Stop(id)
	}
	c.JSON(http.StatusOK, gin.H{"ended": true})
}

func (h *LivestreamHandler) ChatHistory(c *gin.Context) {
	id, ok := h.streamID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.Error(errors.NewInvalidInputError("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	messages, err := h.chat.History(c.Request.Context(), id, limit)
	if err != nil {
		c.Error(errors.NewInternalError("failed to load chat history"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type SubmitChatRequest struct {
	Author string `json:"author" binding:"max=50"`
	Text   string `json:"text"`
}

func (h *LivestreamHandler) SubmitChat(c *gin.Context) {
	id, ok := h.streamID(c)
	if !ok {
		return
	}

	var req SubmitChatRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	// An authenticated identity wins over whatever the payload claims.
	author := c.GetString("username")
	if author == "" {
		author = req.Author
	}
	if author == "" {
		c.Error(errors.NewInvalidInputError("author is required"))
		return
	}

	msg, err := h.chat.Submit(c.Request.Context(), id, author, req.Text)
	if err != nil {
		if err == domain.ErrRateLimited {
			c.Error(errors.NewRateLimitError())
			return
		}
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}
	if msg == nil {
		// Blank submission is not an error; nothing was stored.
		c.JSON(http.StatusOK, gin.H{"ignored": true})
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *LivestreamHandler) streamID(c *gin.Context) (domain.LivestreamID, bool) {
	id := c.Param("id")
	if err := validation.ValidateID(id); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return "", false
	}
	return domain.LivestreamID(id), true
}
