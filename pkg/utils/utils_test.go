package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := GenerateID("test")
		assert.True(t, strings.HasPrefix(id, "test_"))
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestGeneratePrefixedIDs(t *testing.T) {
	assert.True(t, strings.HasPrefix(GenerateSessionID(), "session_"))
	assert.True(t, strings.HasPrefix(GenerateHandleID(), "handle_"))
	assert.True(t, strings.HasPrefix(GenerateLivestreamID(), "live_"))
	assert.NotEmpty(t, GenerateMessageID())
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty("   \t\n"))
	assert.False(t, IsEmpty("x"))
	assert.False(t, IsEmpty(" x "))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "exactly10!", TruncateString("exactly10!", 10))
	assert.Equal(t, "long st...", TruncateString("long string here", 10))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
}
