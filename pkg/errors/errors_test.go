package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	err := NewAppError(ErrCodeNotFound, "session not found", http.StatusNotFound)
	assert.Equal(t, "NOT_FOUND: session not found", err.Error())

	wrapped := WrapError(errors.New("redis: nil"), ErrCodeInternal, "lookup failed", http.StatusInternalServerError)
	assert.Contains(t, wrapped.Error(), "lookup failed")
	assert.Contains(t, wrapped.Error(), "redis: nil")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := WrapError(cause, ErrCodeInternal, "wrapped", http.StatusInternalServerError)
	assert.ErrorIs(t, err, cause)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		err    *AppError
		code   ErrorCode
		status int
	}{
		{NewInvalidInputError("bad"), ErrCodeInvalidInput, http.StatusBadRequest},
		{NewNotFoundError("session"), ErrCodeNotFound, http.StatusNotFound},
		{NewUnauthorizedError("no token"), ErrCodeUnauthorized, http.StatusUnauthorized},
		{NewConflictError("closed"), ErrCodeConflict, http.StatusConflict},
		{NewRateLimitError(), ErrCodeRateLimit, http.StatusTooManyRequests},
		{NewOperationInFlightError(), ErrCodeOperationInFlight, http.StatusConflict},
		{NewInternalError("boom"), ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.err.Code)
		assert.Equal(t, tt.status, tt.err.HTTPStatus)
	}
}

func TestGetAppError(t *testing.T) {
	appErr := NewConflictError("busy")

	require.Same(t, appErr, GetAppError(appErr))
	assert.Nil(t, GetAppError(nil))
	assert.Nil(t, GetAppError(errors.New("plain")))

	wrapped := fmt.Errorf("handler: %w", appErr)
	assert.Same(t, appErr, GetAppError(wrapped))
}
