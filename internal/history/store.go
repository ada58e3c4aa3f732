// Package history holds the ordered turn log for a chat session.
package history

import (
	"fmt"
	"strings"
	"sync"

	"github.com/novera/support-assistant/internal/model"
)

// Store is an append-only, ordered log of conversation turns. Turns are
// never removed or reordered; a turn is updated in place via Replace.
// Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	turns []model.Turn
}

// New creates an empty turn log.
func New() *Store {
	return &Store{}
}

// Append adds a turn to the end of the log.
func (s *Store) Append(turn model.Turn) {
	s.mu.Lock()
	s.turns = append(s.turns, turn)
	s.mu.Unlock()
}

// Replace merges patch fields into the turn with the given id, keeping its
// position. Returns false if no turn has that id.
func (s *Store) Replace(id string, patch model.TurnPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.turns {
		if s.turns[i].ID != id {
			continue
		}
		if patch.Text != nil {
			s.turns[i].Text = *patch.Text
		}
		if patch.Pending != nil {
			s.turns[i].Pending = *patch.Pending
		}
		if patch.Failed != nil {
			s.turns[i].Failed = *patch.Failed
		}
		if patch.OffersCaseCreation != nil {
			s.turns[i].OffersCaseCreation = *patch.OffersCaseCreation
		}
		return true
	}
	return false
}

// Turns returns a snapshot copy of the log in insertion order.
func (s *Store) Turns() []model.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Turn(nil), s.turns...)
}

// Len returns the number of turns in the log.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// Format renders turns as a "User:"/"Assistant:" transcript for the
// classification step. Turns with empty text are skipped; an all-empty log
// yields an empty string.
func Format(turns []model.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		if strings.TrimSpace(t.Text) == "" {
			continue
		}
		switch t.Sender {
		case model.SenderUser:
			fmt.Fprintf(&b, "User: %s\n", t.Text)
		case model.SenderAssistant:
			fmt.Fprintf(&b, "Assistant: %s\n", t.Text)
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}
