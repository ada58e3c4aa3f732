package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/novera/support-assistant/internal/model"
)

// ErrDeploymentNotFound is returned for an unknown deployment id.
var ErrDeploymentNotFound = errors.New("deployment not found")

// DeploymentRegistry is an in-memory registry of projects, their
// deployment environments, and the products installed in each. It serves
// the read-only listing endpoints the chat client's aggregator consumes.
type DeploymentRegistry struct {
	mu        sync.RWMutex
	byProject map[string][]model.Deployment
	products  map[string][]model.InstalledProduct
}

// NewDeploymentRegistry creates an empty registry.
func NewDeploymentRegistry() *DeploymentRegistry {
	return &DeploymentRegistry{
		byProject: make(map[string][]model.Deployment),
		products:  make(map[string][]model.InstalledProduct),
	}
}

// Register adds a deployment with its installed products to a project.
func (r *DeploymentRegistry) Register(projectID string, dep model.Deployment, products []model.InstalledProduct) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byProject[projectID] = append(r.byProject[projectID], dep)
	r.products[dep.ID] = append([]model.InstalledProduct(nil), products...)
}

// ListDeployments returns the deployments of a project. An unknown project
// yields an empty list, not an error.
func (r *DeploymentRegistry) ListDeployments(projectID string) []model.Deployment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Deployment(nil), r.byProject[projectID]...)
}

// ListProducts returns the installed products of a deployment.
func (r *DeploymentRegistry) ListProducts(deploymentID string) ([]model.InstalledProduct, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products, exists := r.products[deploymentID]
	if !exists {
		return nil, ErrDeploymentNotFound
	}
	return append([]model.InstalledProduct(nil), products...), nil
}

type seedFile struct {
	Projects []struct {
		ID          string `json:"id"`
		Deployments []struct {
			model.Deployment
			Products []model.InstalledProduct `json:"products"`
		} `json:"deployments"`
	} `json:"projects"`
}

// LoadFile seeds the registry from a JSON file.
func (r *DeploymentRegistry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read registry seed: %w", err)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse registry seed: %w", err)
	}

	for _, project := range seed.Projects {
		for _, dep := range project.Deployments {
			r.Register(project.ID, dep.Deployment, dep.Products)
		}
	}
	return nil
}
