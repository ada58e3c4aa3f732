package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novera/support-assistant/internal/chat"
	"github.com/novera/support-assistant/internal/model"
	"github.com/novera/support-assistant/pkg/logger"
)

type staticProducts struct{ done chan struct{} }

func newStaticProducts() *staticProducts {
	done := make(chan struct{})
	close(done)
	return &staticProducts{done: done}
}

func (p *staticProducts) Loading() bool                { return false }
func (p *staticProducts) Done() <-chan struct{}        { return p.done }
func (p *staticProducts) ProductMap() model.ProductMap { return model.ProductMap{} }

type recordingTransport struct{ calls int }

func (t *recordingTransport) SendTurn(ctx context.Context, text, conversationID string, products model.ProductMap) (*model.TurnResult, error) {
	t.calls++
	return &model.TurnResult{Kind: model.TurnPlain, Text: "check the gateway logs", ConversationID: "conv-1"}, nil
}

type nopClassifier struct{}

func (nopClassifier) Classify(ctx context.Context, req *model.ClassificationRequest) (*model.Classification, error) {
	return &model.Classification{}, nil
}

func newCLISession(transport chat.Transport) *chat.Session {
	return chat.NewSession(chat.Config{
		ProjectID: "proj-1",
		Region:    "us-east",
		Tier:      "standard",
	}, transport, nopClassifier{}, newStaticProducts(), &terminalNavigator{}, logger.Nop())
}

func TestSendAndPrintWhitespaceOnlyInput(t *testing.T) {
	transport := &recordingTransport{}
	session := newCLISession(transport)

	require.NoError(t, sendAndPrint(context.Background(), session, "   \t"))

	assert.Zero(t, transport.calls)
	assert.Empty(t, session.Turns())
}

func TestSendAndPrintDeliversReply(t *testing.T) {
	transport := &recordingTransport{}
	session := newCLISession(transport)

	require.NoError(t, sendAndPrint(context.Background(), session, "gateway is down"))

	assert.Equal(t, 1, transport.calls)
	turns := session.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "check the gateway logs", turns[1].Text)
}
