package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/novera/support-assistant/internal/middleware"
	"github.com/novera/support-assistant/internal/model"
	"github.com/novera/support-assistant/internal/service"
	"github.com/novera/support-assistant/pkg/logger"
)

// DeploymentHandler serves the deployment and product listings consumed by
// the chat client's aggregator.
type DeploymentHandler struct {
	registry *service.DeploymentRegistry
	logger   *logger.Logger
}

// NewDeploymentHandler creates a new deployment handler.
func NewDeploymentHandler(registry *service.DeploymentRegistry, log *logger.Logger) *DeploymentHandler {
	return &DeploymentHandler{
		registry: registry,
		logger:   log,
	}
}

// List handles GET /api/v1/projects/{projectID}/deployments
func (h *DeploymentHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if err := middleware.ValidateProjectID(projectID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	deployments := h.registry.ListDeployments(projectID)
	writeJSON(w, http.StatusOK, model.ListDeploymentsResponse{Deployments: deployments})
}

// Products handles GET /api/v1/deployments/{id}/products
func (h *DeploymentHandler) Products(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "id")

	products, err := h.registry.ListProducts(deploymentID)
	if err != nil {
		if errors.Is(err, service.ErrDeploymentNotFound) {
			writeError(w, http.StatusNotFound, "deployment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	writeJSON(w, http.StatusOK, model.ListProductsResponse{Products: products})
}
