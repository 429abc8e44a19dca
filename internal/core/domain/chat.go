package domain

import "time"

type MessageID string

// ChatMessage is an append-only chat record. Messages are never mutated after
// creation; retention is the chat repository's trim policy.
type ChatMessage struct {
	ID           MessageID    `json:"id"`
	LivestreamID LivestreamID `json:"livestream_id"`
	Author       string       `json:"author"`
	Text         string       `json:"text"`
	Timestamp    time.Time    `json:"timestamp"`
}
