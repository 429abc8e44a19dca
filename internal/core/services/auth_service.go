package services

import (
	"fmt"
	"time"

	"communiconnect/pkg/validation"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Claims carried inside an access token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AuthService issues and validates the JWT access tokens the HTTP and
// websocket surfaces require.
type AuthService struct {
	secret []byte
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewAuthService(secret string, ttl time.Duration, logger *zap.SugaredLogger) *AuthService {
	return &AuthService{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
	}
}

// IssueToken mints a signed access token for the given username.
func (s *AuthService) IssueToken(username string) (string, error) {
	if err := validation.ValidateAuthor(username); err != nil {
		return "", fmt.Errorf("invalid username: %w", err)
	}

	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    "communiconnect",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
