package domain

import "time"

// Response is the channel-neutral result of processing one message. Delivery
// channels (webhook, chat bot) transform it into their own wire format; the
// core never learns about those formats.
type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Success bool   `json:"success"`
	// Fallback marks a canned low-confidence reply.
	Fallback bool `json:"fallback,omitempty"`
	// Clarification marks a best-guess reply the router is not fully
	// confident in.
	Clarification bool   `json:"clarification,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// NewResponse builds a successful response stamped with the current UTC time.
func NewResponse(message string, data any) Response {
	return Response{
		Message:   message,
		Data:      data,
		Success:   true,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ErrorResponse builds a failed response carrying a user-facing message.
func ErrorResponse(message string) Response {
	return Response{
		Message:   message,
		Success:   false,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ConversationContext carries channel metadata and the previous turn's NLP
// results. Owned by the calling channel adapter; read-only to the core.
type ConversationContext struct {
	PlatformUserID string
	ChannelID      string
	LastIntent     Intent
	LastEntities   Entities
	UpdatedAt      time.Time
}
