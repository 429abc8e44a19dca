package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// GenerateID generates a random ID with prefix
func GenerateID(prefix string) string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

// GenerateSessionID generates a unique session ID
func GenerateSessionID() string {
	return GenerateID("session")
}

// GenerateHandleID generates a unique media handle ID
func GenerateHandleID() string {
	return GenerateID("handle")
}

// GenerateLivestreamID generates a unique livestream ID
func GenerateLivestreamID() string {
	return GenerateID("live")
}

// GenerateMessageID generates a unique chat message ID
func GenerateMessageID() string {
	return uuid.NewString()
}
