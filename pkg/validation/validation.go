package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID checks livestream/session/viewer identifiers.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if len(id) > 100 {
		return fmt.Errorf("id must be at most 100 characters")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("id may only contain letters, digits, '-' and '_'")
	}
	return nil
}

// ValidateAuthor checks a chat author display name.
func ValidateAuthor(author string) error {
	author = strings.TrimSpace(author)
	if author == "" {
		return fmt.Errorf("author must not be empty")
	}
	if utf8.RuneCountInString(author) > 50 {
		return fmt.Errorf("author must be at most 50 characters")
	}
	return nil
}

// NormalizeChatText trims the submitted chat text and strips control
// characters. An empty result means the submission should be ignored.
func NormalizeChatText(text string, maxLen int) string {
	text = strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, text)
	text = strings.TrimSpace(text)

	if maxLen > 0 && utf8.RuneCountInString(text) > maxLen {
		runes := []rune(text)
		text = string(runes[:maxLen])
	}
	return text
}
