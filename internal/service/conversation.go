// Package service provides business logic for the support assistant.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/novera/support-assistant/internal/llm"
	"github.com/novera/support-assistant/internal/model"
	"github.com/novera/support-assistant/internal/store"
	"github.com/novera/support-assistant/pkg/logger"
	"github.com/novera/support-assistant/pkg/metrics"
)

// caseActionMarker is the token the assistant is instructed to append when
// the conversation warrants opening a support case. It is stripped from the
// reply and surfaced as a structured action instead.
const caseActionMarker = "[[offer_case_creation]]"

// createCaseAction is the structured action attached to actionable replies.
const createCaseAction = `{"type":"create_case"}`

const systemPreamble = `You are the support assistant for the Novera customer portal.
Help the customer diagnose issues with their deployed products. Be concise
and ask clarifying questions when the problem is under-specified.

The customer's environments and installed products:
%s

If the issue looks like it needs a support engineer (outage, data loss,
blocked upgrade, or you cannot resolve it in chat), end your reply with the
exact token %s on its own line.`

// EventPublisher is the audit stream as seen by the services.
type EventPublisher interface {
	PublishTurn(ctx context.Context, turn *model.TurnEvent) (uint64, error)
	PublishEvent(ctx context.Context, event *model.ConversationEvent) (uint64, error)
}

// ConversationService starts and continues support conversations.
type ConversationService struct {
	store  store.SessionStore
	llm    llm.Client
	events EventPublisher
	log    *logger.Logger
	model  string
}

// NewConversationService creates a new conversation service.
func NewConversationService(sessions store.SessionStore, llmClient llm.Client, events EventPublisher, log *logger.Logger, chatModel string) *ConversationService {
	return &ConversationService{
		store:  sessions,
		llm:    llmClient,
		events: events,
		log:    log,
		model:  chatModel,
	}
}

// Start creates a new conversation from the first user turn.
func (s *ConversationService) Start(ctx context.Context, tenantID string, req *model.ChatRequest) (*model.ChatResponse, error) {
	now := time.Now()
	session := &store.ChatSession{
		ID:          uuid.Must(uuid.NewV7()).String(),
		TenantID:    tenantID,
		Region:      req.Region,
		Tier:        req.Tier,
		EnvProducts: req.EnvProducts.Clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	metrics.ConversationsTotal.WithLabelValues(tenantID).Inc()

	return s.respond(ctx, session, req)
}

// Continue appends a turn to an existing conversation.
func (s *ConversationService) Continue(ctx context.Context, tenantID, conversationID string, req *model.ChatRequest) (*model.ChatResponse, error) {
	session, err := s.store.Load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if session.TenantID != tenantID {
		return nil, store.ErrNotFound
	}

	// The client may have finished loading its environment context since
	// the conversation started.
	if len(req.EnvProducts) > 0 {
		session.EnvProducts = req.EnvProducts.Clone()
	}

	return s.respond(ctx, session, req)
}

func (s *ConversationService) respond(ctx context.Context, session *store.ChatSession, req *model.ChatRequest) (*model.ChatResponse, error) {
	now := time.Now()

	userTurn := model.Turn{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Text:      req.Message,
		Sender:    model.SenderUser,
		Timestamp: now,
	}
	session.Turns = append(session.Turns, userTurn)
	s.publishTurn(ctx, session, &userTurn)
	metrics.TurnsTotal.WithLabelValues(session.TenantID, string(model.SenderUser)).Inc()

	messages := make([]llm.ChatMessage, 0, len(session.Turns))
	for _, turn := range session.Turns {
		messages = append(messages, llm.ChatMessage{
			Role:    string(turn.Sender),
			Content: turn.Text,
		})
	}

	resp, err := s.llm.Complete(ctx, &llm.CompletionRequest{
		Model:    s.model,
		System:   fmt.Sprintf(systemPreamble, FormatEnvContext(session.EnvProducts), caseActionMarker),
		Messages: messages,
	})
	if err != nil {
		s.publishErrorEvent(ctx, session, err)
		metrics.LLMCompletionDuration.WithLabelValues(s.model, "error").Observe(0)
		return nil, fmt.Errorf("assistant completion failed: %w", err)
	}
	metrics.RecordLLMCompletion(resp.Model, "success", float64(resp.LatencyMs)/1000.0, resp.TokensIn, resp.TokensOut)

	reply, offersCase := extractActionMarker(resp.Content)

	assistantTurn := model.Turn{
		ID:                 uuid.Must(uuid.NewV7()).String(),
		Text:               reply,
		Sender:             model.SenderAssistant,
		Timestamp:          time.Now(),
		OffersCaseCreation: offersCase,
	}
	session.Turns = append(session.Turns, assistantTurn)
	s.publishTurn(ctx, session, &assistantTurn)
	metrics.TurnsTotal.WithLabelValues(session.TenantID, string(model.SenderAssistant)).Inc()

	session.UpdatedAt = time.Now()
	if err := s.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	out := &model.ChatResponse{
		Message:        reply,
		ConversationID: session.ID,
	}
	if offersCase {
		out.Actions = []byte(createCaseAction)
	}
	return out, nil
}

func (s *ConversationService) publishTurn(ctx context.Context, session *store.ChatSession, turn *model.Turn) {
	if s.events == nil {
		return
	}
	_, err := s.events.PublishTurn(ctx, &model.TurnEvent{
		ID:             turn.ID,
		ConversationID: session.ID,
		TenantID:       session.TenantID,
		Sender:         turn.Sender,
		Text:           turn.Text,
		CreatedAt:      turn.Timestamp,
	})
	if err != nil {
		// Audit publishing never blocks the conversation.
		s.log.Warn("failed to publish turn event", zap.Error(err))
	}
}

func (s *ConversationService) publishErrorEvent(ctx context.Context, session *store.ChatSession, cause error) {
	if s.events == nil {
		return
	}
	_, err := s.events.PublishEvent(ctx, &model.ConversationEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: session.ID,
		TenantID:       session.TenantID,
		Type:           model.EventTypeError,
		Reason:         cause.Error(),
		CreatedAt:      time.Now(),
	})
	if err != nil {
		s.log.Warn("failed to publish error event", zap.Error(err))
	}
}

// extractActionMarker strips the case-creation token from a reply and
// reports whether it was present.
func extractActionMarker(content string) (string, bool) {
	if !strings.Contains(content, caseActionMarker) {
		return strings.TrimSpace(content), false
	}
	reply := strings.ReplaceAll(content, caseActionMarker, "")
	return strings.TrimSpace(reply), true
}

// FormatEnvContext renders a product map as one "env: products" line per
// environment, sorted for deterministic prompts.
func FormatEnvContext(products model.ProductMap) string {
	if len(products) == 0 {
		return "(no environment data available)"
	}

	envs := make([]string, 0, len(products))
	for env := range products {
		envs = append(envs, env)
	}
	sort.Strings(envs)

	var b strings.Builder
	for _, env := range envs {
		labels := products[env]
		if len(labels) == 0 {
			fmt.Fprintf(&b, "- %s: (no products recorded)\n", env)
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", env, strings.Join(labels, ", "))
	}
	return strings.TrimSuffix(b.String(), "\n")
}
