package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/novera/support-assistant/internal/model"
	"github.com/novera/support-assistant/pkg/metrics"
)

const (
	// StreamName is the name of the support chat audit stream.
	StreamName = "SUPPORT_CHAT"

	// SubjectPrefix is the prefix for all support chat subjects.
	SubjectPrefix = "support"
)

// StreamManager handles JetStream stream operations. The audit stream is
// write-only from this service; conversation reads go through the session
// store.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the audit stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		MaxBytes:    50 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Support conversation turns and hand-off events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// TurnSubject returns the subject for a turn record.
func TurnSubject(tenantID, conversationID string, sender model.Sender) string {
	return fmt.Sprintf("%s.%s.%s.turn.%s", SubjectPrefix, tenantID, conversationID, sender)
}

// EventSubject returns the subject for a conversation event.
func EventSubject(tenantID, conversationID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s.event.%s", SubjectPrefix, tenantID, conversationID, eventType)
}

// PublishTurn publishes a turn record to the audit stream.
func (m *StreamManager) PublishTurn(ctx context.Context, turn *model.TurnEvent) (uint64, error) {
	subject := TurnSubject(turn.TenantID, turn.ConversationID, turn.Sender)

	data, err := json.Marshal(turn)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal turn: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		metrics.EventStreamPublishes.WithLabelValues("turn", "error").Inc()
		return 0, fmt.Errorf("failed to publish turn: %w", err)
	}

	metrics.EventStreamPublishes.WithLabelValues("turn", "ok").Inc()
	return ack.Sequence, nil
}

// PublishEvent publishes a conversation event to the audit stream.
func (m *StreamManager) PublishEvent(ctx context.Context, event *model.ConversationEvent) (uint64, error) {
	subject := EventSubject(event.TenantID, event.ConversationID, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		metrics.EventStreamPublishes.WithLabelValues("event", "error").Inc()
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.EventStreamPublishes.WithLabelValues("event", "ok").Inc()
	return ack.Sequence, nil
}
