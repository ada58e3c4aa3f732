package deployments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/novera/support-assistant/internal/model"
)

// ClientConfig holds settings for the deployment listing client.
type ClientConfig struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
}

// Client reads deployment descriptors and per-deployment product listings
// from the portal API.
type Client struct {
	baseURL   string
	authToken string
	http      *http.Client
}

// NewClient creates a deployment listing client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		authToken: cfg.AuthToken,
		http:      &http.Client{Timeout: timeout},
	}
}

// ListDeployments returns the deployment descriptors for a project.
func (c *Client) ListDeployments(ctx context.Context, projectID string) ([]model.Deployment, error) {
	endpoint := fmt.Sprintf("%s/api/v1/projects/%s/deployments", c.baseURL, url.PathEscape(projectID))

	var resp model.ListDeploymentsResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	return resp.Deployments, nil
}

// ListProducts returns the installed products for one deployment.
func (c *Client) ListProducts(ctx context.Context, deploymentID string) ([]model.InstalledProduct, error) {
	endpoint := fmt.Sprintf("%s/api/v1/deployments/%s/products", c.baseURL, url.PathEscape(deploymentID))

	var resp model.ListProductsResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return resp.Products, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
