package model

import (
	"time"
)

// EventType represents the type of conversation event published to the
// audit stream.
type EventType string

const (
	EventTypeError      EventType = "error"
	EventTypeClassified EventType = "classified"
)

// TurnEvent is the durable record of a single turn.
type TurnEvent struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	TenantID       string    `json:"tenant_id"`
	Sender         Sender    `json:"sender"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationEvent records a non-turn occurrence in a conversation.
type ConversationEvent struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	TenantID       string         `json:"tenant_id"`
	Type           EventType      `json:"type"`
	Reason         string         `json:"reason,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
