package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novera/support-assistant/internal/model"
	"github.com/novera/support-assistant/pkg/logger"
)

func classifyRequest() *model.ClassificationRequest {
	return &model.ClassificationRequest{
		ChatHistory: "User: API Gateway is timing out\nAssistant: Have you checked the logs?",
		EnvProducts: model.ProductMap{"Production": {"API Manager 4.2.0"}},
		Region:      "us-east",
		Tier:        "standard",
	}
}

func TestClassifyParsesModelReply(t *testing.T) {
	llmClient := &fakeLLM{replies: []string{`{
		"issueType": "Incident",
		"severityLevel": "High",
		"caseInfo": {
			"subject": "API Gateway timeouts",
			"productName": "API Manager",
			"productVersion": "4.2.0",
			"environment": "Production",
			"description": "Gateway requests time out under load"
		}
	}`}}
	svc := NewClassificationService(llmClient, nil, logger.Nop(), "test-model")

	result, err := svc.Classify(context.Background(), "tenant-1", classifyRequest())
	require.NoError(t, err)

	assert.Equal(t, "Incident", result.IssueType)
	assert.Equal(t, "High", result.SeverityLevel)
	assert.Equal(t, "API Gateway timeouts", result.CaseInfo.Subject)
	assert.Equal(t, "Production", result.CaseInfo.Environment)

	require.Len(t, llmClient.requests, 1)
	req := llmClient.requests[0]
	assert.Equal(t, classifySystem, req.System)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "User: API Gateway is timing out")
	assert.Contains(t, req.Messages[0].Content, "- Production: API Manager 4.2.0")
	assert.Contains(t, req.Messages[0].Content, "Support region: us-east")
}

func TestClassifyUnwrapsCodeFence(t *testing.T) {
	llmClient := &fakeLLM{replies: []string{"```json\n{\"issueType\": \"Defect\", \"severityLevel\": \"Low\"}\n```"}}
	svc := NewClassificationService(llmClient, nil, logger.Nop(), "test-model")

	result, err := svc.Classify(context.Background(), "tenant-1", classifyRequest())
	require.NoError(t, err)

	assert.Equal(t, "Defect", result.IssueType)
	assert.Equal(t, "Low", result.SeverityLevel)
}

func TestClassifyNormalizesUnknownValues(t *testing.T) {
	llmClient := &fakeLLM{replies: []string{`{"issueType": "Catastrophe", "severityLevel": "Apocalyptic"}`}}
	svc := NewClassificationService(llmClient, nil, logger.Nop(), "test-model")

	result, err := svc.Classify(context.Background(), "tenant-1", classifyRequest())
	require.NoError(t, err)

	assert.Equal(t, "Question", result.IssueType)
	assert.Equal(t, "Medium", result.SeverityLevel)
}

func TestClassifyUnparseableReplyFails(t *testing.T) {
	llmClient := &fakeLLM{replies: []string{"I think this is an incident."}}
	svc := NewClassificationService(llmClient, nil, logger.Nop(), "test-model")

	_, err := svc.Classify(context.Background(), "tenant-1", classifyRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse classification")
}

func TestClassifyPublishesClassifiedEvent(t *testing.T) {
	llmClient := &fakeLLM{replies: []string{`{"issueType": "Incident", "severityLevel": "High"}`}}
	events := &fakePublisher{}
	svc := NewClassificationService(llmClient, events, logger.Nop(), "test-model")

	req := classifyRequest()
	req.ConversationID = "conv-1"
	_, err := svc.Classify(context.Background(), "tenant-1", req)
	require.NoError(t, err)

	require.Len(t, events.events, 1)
	event := events.events[0]
	assert.Equal(t, model.EventTypeClassified, event.Type)
	assert.Equal(t, "conv-1", event.ConversationID)
	assert.Equal(t, "tenant-1", event.TenantID)
	assert.Equal(t, "Incident", event.Metadata["issue_type"])
}

func TestClassifyWithoutConversationIDSkipsEvent(t *testing.T) {
	llmClient := &fakeLLM{replies: []string{`{"issueType": "Question", "severityLevel": "Low"}`}}
	events := &fakePublisher{}
	svc := NewClassificationService(llmClient, events, logger.Nop(), "test-model")

	_, err := svc.Classify(context.Background(), "tenant-1", classifyRequest())
	require.NoError(t, err)

	assert.Empty(t, events.events)
}

func TestClassifyCompletionFailure(t *testing.T) {
	llmClient := &fakeLLM{err: errors.New("model overloaded")}
	svc := NewClassificationService(llmClient, nil, logger.Nop(), "test-model")

	_, err := svc.Classify(context.Background(), "tenant-1", classifyRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classification completion failed")
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bare json", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.content))
		})
	}
}
