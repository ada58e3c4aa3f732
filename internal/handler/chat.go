// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/novera/support-assistant/internal/middleware"
	"github.com/novera/support-assistant/internal/model"
	"github.com/novera/support-assistant/internal/service"
	"github.com/novera/support-assistant/internal/store"
	"github.com/novera/support-assistant/pkg/logger"
)

// ChatHandler handles conversation endpoints.
type ChatHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *service.ConversationService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: svc,
		logger:  log,
	}
}

// Start handles POST /api/v1/chat
func (h *ChatHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Start(ctx, tenantID, req)
	if err != nil {
		h.logger.Error("failed to start conversation",
			zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
			zap.Error(err))
		writeError(w, http.StatusBadGateway, "assistant unavailable")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Continue handles POST /api/v1/chat/{id}
func (h *ChatHandler) Continue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Continue(ctx, tenantID, conversationID, req)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to continue conversation",
			zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
			zap.Error(err))
		writeError(w, http.StatusBadGateway, "assistant unavailable")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*model.ChatRequest, bool) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}
