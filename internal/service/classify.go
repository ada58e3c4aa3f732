package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/prompts"
	"go.uber.org/zap"

	"github.com/novera/support-assistant/internal/llm"
	"github.com/novera/support-assistant/internal/model"
	"github.com/novera/support-assistant/pkg/logger"
	"github.com/novera/support-assistant/pkg/metrics"
)

const classifySystem = `You classify customer support conversations into case fields.
Respond with a single JSON object and nothing else.`

const classifyTemplate = `Classify the following support conversation.

Conversation transcript:
{{.chat_history}}

Customer environments and products:
{{.env_products}}

Support region: {{.region}}
Support tier: {{.tier}}

Respond with JSON of this exact shape:
{"issueType": "<Incident|Defect|Question|Feature Request>",
 "severityLevel": "<Critical|High|Medium|Low>",
 "caseInfo": {"subject": "...", "productName": "...", "productVersion": "...",
              "environment": "...", "description": "..."}}

Pick productName, productVersion and environment from the listed
environments when the conversation points at one of them.`

var (
	validIssueTypes = map[string]bool{
		"Incident":        true,
		"Defect":          true,
		"Question":        true,
		"Feature Request": true,
	}
	validSeverities = map[string]bool{
		"Critical": true,
		"High":     true,
		"Medium":   true,
		"Low":      true,
	}
)

// ClassificationService maps a conversation transcript plus environment
// context onto suggested case fields.
type ClassificationService struct {
	llm    llm.Client
	events EventPublisher
	log    *logger.Logger
	model  string
	tmpl   prompts.PromptTemplate
}

// NewClassificationService creates a new classification service. events may
// be nil when audit publishing is disabled.
func NewClassificationService(llmClient llm.Client, events EventPublisher, log *logger.Logger, chatModel string) *ClassificationService {
	return &ClassificationService{
		llm:    llmClient,
		events: events,
		log:    log,
		model:  chatModel,
		tmpl: prompts.NewPromptTemplate(classifyTemplate,
			[]string{"chat_history", "env_products", "region", "tier"}),
	}
}

// Classify runs one classification. The LLM reply must be a JSON object;
// out-of-vocabulary issue types and severities are normalized to safe
// defaults rather than rejected.
func (s *ClassificationService) Classify(ctx context.Context, tenantID string, req *model.ClassificationRequest) (*model.Classification, error) {
	prompt, err := s.tmpl.Format(map[string]any{
		"chat_history": req.ChatHistory,
		"env_products": FormatEnvContext(req.EnvProducts),
		"region":       req.Region,
		"tier":         req.Tier,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build classification prompt: %w", err)
	}

	resp, err := s.llm.Complete(ctx, &llm.CompletionRequest{
		Model:       s.model,
		System:      classifySystem,
		Messages:    []llm.ChatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   1024,
		Temperature: 0.1,
	})
	if err != nil {
		metrics.ClassificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("classification completion failed: %w", err)
	}

	var result model.Classification
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &result); err != nil {
		metrics.ClassificationsTotal.WithLabelValues("parse_error").Inc()
		s.log.Warn("unparseable classification reply", zap.Error(err))
		return nil, fmt.Errorf("failed to parse classification: %w", err)
	}

	normalize(&result)
	metrics.ClassificationsTotal.WithLabelValues("success").Inc()
	s.publishClassified(ctx, tenantID, req.ConversationID, &result)
	return &result, nil
}

func (s *ClassificationService) publishClassified(ctx context.Context, tenantID, conversationID string, result *model.Classification) {
	if s.events == nil || conversationID == "" {
		return
	}
	_, err := s.events.PublishEvent(ctx, &model.ConversationEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		TenantID:       tenantID,
		Type:           model.EventTypeClassified,
		Metadata: map[string]any{
			"issue_type":     result.IssueType,
			"severity_level": result.SeverityLevel,
		},
		CreatedAt: time.Now(),
	})
	if err != nil {
		// Audit publishing never blocks classification.
		s.log.Warn("failed to publish classified event", zap.Error(err))
	}
}

func normalize(c *model.Classification) {
	if !validIssueTypes[c.IssueType] {
		c.IssueType = "Question"
	}
	if !validSeverities[c.SeverityLevel] {
		c.SeverityLevel = "Medium"
	}
}

// stripCodeFence unwraps a reply the model wrapped in a markdown fence.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
