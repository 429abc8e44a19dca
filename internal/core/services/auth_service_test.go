package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newAuthService(t *testing.T, ttl time.Duration) *AuthService {
	t.Helper()
	return NewAuthService("test-secret", ttl, zaptest.NewLogger(t).Sugar())
}

func TestIssueAndValidateToken(t *testing.T) {
	svc := newAuthService(t, time.Hour)

	token, err := svc.IssueToken("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "communiconnect", claims.Issuer)
}

func TestIssueTokenRejectsInvalidUsername(t *testing.T) {
	svc := newAuthService(t, time.Hour)

	_, err := svc.IssueToken("")
	assert.Error(t, err)
	_, err = svc.IssueToken("   ")
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := newAuthService(t, -time.Minute)

	token, err := svc.IssueToken("alice")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := newAuthService(t, time.Hour)
	verifier := NewAuthService("different-secret", time.Hour, zaptest.NewLogger(t).Sugar())

	token, err := issuer.IssueToken("alice")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthService(t, time.Hour)
	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
