package models

import "time"

// DLQMessage is an event that could not be published or processed.
type DLQMessage struct {
	ID           int64      `json:"id"`
	Topic        string     `json:"topic"`
	MessageKey   string     `json:"message_key"`
	Payload      string     `json:"payload"`
	ErrorMessage string     `json:"error_message"`
	RetryCount   int        `json:"retry_count"`
	Resolved     bool       `json:"resolved"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}
