package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novera/support-assistant/internal/llm"
	"github.com/novera/support-assistant/internal/middleware"
	"github.com/novera/support-assistant/internal/model"
	"github.com/novera/support-assistant/internal/service"
	"github.com/novera/support-assistant/internal/store"
	"github.com/novera/support-assistant/pkg/logger"
)

type stubLLM struct {
	reply string
	err   error
}

func (s *stubLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.reply, Model: "test-model"}, nil
}

func (s *stubLLM) Name() string     { return "stub" }
func (s *stubLLM) Models() []string { return []string{"test-model"} }

// withTenant injects the tenant the auth middleware would have resolved.
func withTenant(tenantID string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.TenantIDKey, tenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newChatRouter(t *testing.T, llmClient llm.Client) (http.Handler, *store.MemoryStore) {
	t.Helper()

	sessions := store.NewMemoryStore()
	svc := service.NewConversationService(sessions, llmClient, nil, logger.Nop(), "test-model")
	h := NewChatHandler(svc, logger.Nop())

	r := chi.NewRouter()
	r.Post("/api/v1/chat", h.Start)
	r.Post("/api/v1/chat/{id}", h.Continue)
	return withTenant("tenant-1", r), sessions
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatStart(t *testing.T) {
	router, sessions := newChatRouter(t, &stubLLM{reply: "Have you checked the logs?"})

	rec := postJSON(t, router, "/api/v1/chat", `{"message": "gateway is down", "region": "us-east", "tier": "standard"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Have you checked the logs?", resp.Message)
	require.NotEmpty(t, resp.ConversationID)

	session, err := sessions.Load(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", session.TenantID)
	assert.Len(t, session.Turns, 2)
}

func TestChatContinue(t *testing.T) {
	router, _ := newChatRouter(t, &stubLLM{reply: "ok"})

	rec := postJSON(t, router, "/api/v1/chat", `{"message": "gateway is down"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var first model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	rec = postJSON(t, router, "/api/v1/chat/"+first.ConversationID, `{"message": "still down"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var second model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.ConversationID, second.ConversationID)
}

func TestChatContinueUnknownConversation(t *testing.T) {
	router, _ := newChatRouter(t, &stubLLM{reply: "ok"})

	rec := postJSON(t, router, "/api/v1/chat/0191e4a3-8f3e-7cc0-a9ce-111111111111", `{"message": "hello"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatContinueInvalidConversationID(t *testing.T) {
	router, _ := newChatRouter(t, &stubLLM{reply: "ok"})

	rec := postJSON(t, router, "/api/v1/chat/not-a-uuid", `{"message": "hello"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	router, _ := newChatRouter(t, &stubLLM{reply: "ok"})

	rec := postJSON(t, router, "/api/v1/chat", `{"message": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRejectsMalformedBody(t *testing.T) {
	router, _ := newChatRouter(t, &stubLLM{reply: "ok"})

	rec := postJSON(t, router, "/api/v1/chat", `{"message": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatAssistantFailureIsBadGateway(t *testing.T) {
	router, _ := newChatRouter(t, &stubLLM{err: assert.AnError})

	rec := postJSON(t, router, "/api/v1/chat", `{"message": "hello"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
