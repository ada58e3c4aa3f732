// Package model defines data structures for the support assistant.
package model

import (
	"encoding/json"
	"time"
)

// Sender identifies who produced a conversation turn.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Turn represents one message exchange unit in the chat log.
type Turn struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`

	// Pending is true while the assistant reply for this turn is still in
	// flight. At most one turn is pending at a time.
	Pending bool `json:"pending,omitempty"`

	// Failed is true if the transport call for this turn errored. Mutually
	// exclusive with Pending.
	Failed bool `json:"failed,omitempty"`

	// OffersCaseCreation is true if the reply carried a structured
	// action marker inviting the user to open a support case.
	OffersCaseCreation bool `json:"offers_case_creation,omitempty"`
}

// TurnPatch carries partial updates merged into an existing turn.
// Nil fields are left untouched.
type TurnPatch struct {
	Text               *string
	Pending            *bool
	Failed             *bool
	OffersCaseCreation *bool
}

// TurnResultKind discriminates the two response variants of a chat turn.
type TurnResultKind string

const (
	// TurnPlain is an ordinary assistant reply.
	TurnPlain TurnResultKind = "plain"
	// TurnActionable is a reply that also offers case creation.
	TurnActionable TurnResultKind = "actionable"
)

// TurnResult is the normalized outcome of one chat round-trip.
type TurnResult struct {
	Kind           TurnResultKind
	Text           string
	ConversationID string
}

// Actionable reports whether the reply offered case creation.
func (r *TurnResult) Actionable() bool {
	return r.Kind == TurnActionable
}

// ChatRequest is the wire payload for starting or continuing a conversation.
type ChatRequest struct {
	Message     string     `json:"message"`
	EnvProducts ProductMap `json:"envProducts"`
	Region      string     `json:"region"`
	Tier        string     `json:"tier"`
}

// ChatResponse is the wire payload returned for a chat turn. Actions is an
// opaque structure; callers only inspect its presence.
type ChatResponse struct {
	Message        string          `json:"message"`
	ConversationID string          `json:"conversationId"`
	Actions        json.RawMessage `json:"actions,omitempty"`
}

// HasActions reports whether the response carried an action marker.
func (r *ChatResponse) HasActions() bool {
	return len(r.Actions) > 0 && string(r.Actions) != "null"
}

// ToResult converts a wire response into the tagged result variant.
func (r *ChatResponse) ToResult() *TurnResult {
	kind := TurnPlain
	if r.HasActions() {
		kind = TurnActionable
	}
	return &TurnResult{
		Kind:           kind,
		Text:           r.Message,
		ConversationID: r.ConversationID,
	}
}
