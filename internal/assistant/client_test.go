package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novera/support-assistant/internal/model"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:   baseURL,
		AuthToken: "test-token",
		Region:    "us-east",
		Tier:      "standard",
	})
}

func TestSendTurnStartsConversationWithoutID(t *testing.T) {
	var gotPath string
	var gotReq model.ChatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(model.ChatResponse{
			Message:        "How can I help?",
			ConversationID: "conv-1",
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	result, err := c.SendTurn(context.Background(), "API Gateway timing out", "", model.ProductMap{
		"Production": {"API Manager 4.2.0"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/chat", gotPath)
	assert.Equal(t, "API Gateway timing out", gotReq.Message)
	assert.Equal(t, "us-east", gotReq.Region)
	assert.Equal(t, "standard", gotReq.Tier)
	assert.Equal(t, model.ProductMap{"Production": {"API Manager 4.2.0"}}, gotReq.EnvProducts)

	assert.Equal(t, model.TurnPlain, result.Kind)
	assert.Equal(t, "How can I help?", result.Text)
	assert.Equal(t, "conv-1", result.ConversationID)
}

func TestSendTurnContinuesConversationByID(t *testing.T) {
	var gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(model.ChatResponse{
			Message:        "Still looking",
			ConversationID: "conv-1",
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.SendTurn(context.Background(), "any update?", "conv-1", nil)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/chat/conv-1", gotPath)
}

func TestSendTurnNilProductMapSentAsEmptyObject(t *testing.T) {
	var raw map[string]json.RawMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		json.NewEncoder(w).Encode(model.ChatResponse{Message: "ok", ConversationID: "c"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.SendTurn(context.Background(), "hi", "", nil)
	require.NoError(t, err)

	assert.JSONEq(t, "{}", string(raw["envProducts"]))
}

func TestSendTurnActionsMarksActionable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"I suggest opening a case","conversationId":"conv-2","actions":{"type":"create_case"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	result, err := c.SendTurn(context.Background(), "it is down", "", nil)
	require.NoError(t, err)

	assert.Equal(t, model.TurnActionable, result.Kind)
	assert.True(t, result.Actionable())
}

func TestSendTurnNullActionsIsPlain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"ok","conversationId":"conv-3","actions":null}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	result, err := c.SendTurn(context.Background(), "hello", "", nil)
	require.NoError(t, err)

	assert.Equal(t, model.TurnPlain, result.Kind)
}

func TestSendTurnNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.SendTurn(context.Background(), "hello", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClassify(t *testing.T) {
	var gotReq model.ClassificationRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/classify", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(model.Classification{
			IssueType:     "Incident",
			SeverityLevel: "High",
			CaseInfo: model.CaseInfo{
				ProductName:    "API Gateway",
				ProductVersion: "4.2.0",
				Environment:    "Production",
				Description:    "Gateway timeouts under load",
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	result, err := c.Classify(context.Background(), &model.ClassificationRequest{
		ChatHistory: "User: API Gateway timing out",
		EnvProducts: model.ProductMap{"Production": {"API Gateway 4.2.0"}},
		Region:      "us-east",
		Tier:        "standard",
	})
	require.NoError(t, err)

	assert.Equal(t, "User: API Gateway timing out", gotReq.ChatHistory)
	assert.Equal(t, "Incident", result.IssueType)
	assert.Equal(t, "High", result.SeverityLevel)
	assert.Equal(t, "Production", result.CaseInfo.Environment)
}
