package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/novera/support-assistant/internal/middleware"
	"github.com/novera/support-assistant/internal/model"
	"github.com/novera/support-assistant/internal/service"
	"github.com/novera/support-assistant/pkg/logger"
)

// ClassifyHandler handles the case classification endpoint.
type ClassifyHandler struct {
	service *service.ClassificationService
	logger  *logger.Logger
}

// NewClassifyHandler creates a new classify handler.
func NewClassifyHandler(svc *service.ClassificationService, log *logger.Logger) *ClassifyHandler {
	return &ClassifyHandler{
		service: svc,
		logger:  log,
	}
}

// Classify handles POST /api/v1/classify
func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	var req model.ClassificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ChatHistory == "" {
		writeError(w, http.StatusBadRequest, "chatHistory is required")
		return
	}

	result, err := h.service.Classify(r.Context(), tenantID, &req)
	if err != nil {
		h.logger.Error("classification failed",
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusBadGateway, "classification unavailable")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
