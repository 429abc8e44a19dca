package http

import (
	"net/http"
	"strings"
	"time"

	"communiconnect/internal/core/services"
	"communiconnect/pkg/errors"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
	tokenTTL    time.Duration
}

func NewAuthHandler(authService *services.AuthService, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokenTTL:    tokenTTL,
	}
}

func (h *AuthHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/auth")
	{
		api.POST("/token", h.IssueToken)
	}
}

type TokenRequest struct {
	Username string `json:"username" binding:"required,min=1,max=50"`
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	token, err := h.authService.IssueToken(req.Username)
	if err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":     req.Username,
		"access_token": token,
		"expires_in":   int(h.tokenTTL / time.Second),
	})
}
