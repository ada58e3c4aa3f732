package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novera/support-assistant/internal/model"
)

func turn(id, text string, sender model.Sender) model.Turn {
	return model.Turn{
		ID:        id,
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestAppendPreservesInsertionOrder(t *testing.T) {
	s := New()

	for i := 0; i < 10; i++ {
		s.Append(turn(fmt.Sprintf("t%d", i), "hello", model.SenderUser))
	}

	turns := s.Turns()
	require.Len(t, turns, 10)
	for i, tn := range turns {
		assert.Equal(t, fmt.Sprintf("t%d", i), tn.ID)
	}
}

func TestReplaceKeepsPosition(t *testing.T) {
	s := New()
	s.Append(turn("a", "first", model.SenderUser))
	s.Append(turn("b", "", model.SenderAssistant))
	s.Append(turn("c", "third", model.SenderUser))

	ok := s.Replace("b", model.TurnPatch{
		Text:    strPtr("reply"),
		Pending: boolPtr(false),
	})
	require.True(t, ok)

	turns := s.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, "a", turns[0].ID)
	assert.Equal(t, "b", turns[1].ID)
	assert.Equal(t, "c", turns[2].ID)
	assert.Equal(t, "reply", turns[1].Text)
	assert.False(t, turns[1].Pending)
}

func TestReplaceMergesOnlyPatchedFields(t *testing.T) {
	s := New()
	pending := turn("x", "", model.SenderAssistant)
	pending.Pending = true
	s.Append(pending)

	s.Replace("x", model.TurnPatch{Failed: boolPtr(true), Pending: boolPtr(false)})

	got := s.Turns()[0]
	assert.True(t, got.Failed)
	assert.False(t, got.Pending)
	assert.Equal(t, model.SenderAssistant, got.Sender)
	assert.Empty(t, got.Text)
}

func TestReplaceUnknownIDIsNoOp(t *testing.T) {
	s := New()
	s.Append(turn("a", "hi", model.SenderUser))

	ok := s.Replace("missing", model.TurnPatch{Text: strPtr("nope")})
	assert.False(t, ok)

	turns := s.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "hi", turns[0].Text)
}

func TestTurnsReturnsSnapshot(t *testing.T) {
	s := New()
	s.Append(turn("a", "hi", model.SenderUser))

	snapshot := s.Turns()
	s.Append(turn("b", "more", model.SenderUser))

	assert.Len(t, snapshot, 1)
	assert.Equal(t, 2, s.Len())
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		turns []model.Turn
		want  string
	}{
		{
			name: "user and assistant lines",
			turns: []model.Turn{
				turn("a", "API Gateway timing out", model.SenderUser),
				turn("b", "Which environment?", model.SenderAssistant),
			},
			want: "User: API Gateway timing out\nAssistant: Which environment?",
		},
		{
			name: "empty turns skipped",
			turns: []model.Turn{
				turn("a", "", model.SenderAssistant),
				turn("b", "still broken", model.SenderUser),
				turn("c", "   ", model.SenderAssistant),
			},
			want: "User: still broken",
		},
		{
			name:  "no turns",
			turns: nil,
			want:  "",
		},
		{
			name: "all empty yields empty string",
			turns: []model.Turn{
				turn("a", "", model.SenderUser),
				turn("b", "", model.SenderAssistant),
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.turns))
		})
	}
}
