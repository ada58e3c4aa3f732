// Package assistant is the client for the conversation and classification
// endpoints of the support assistant backend.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/novera/support-assistant/internal/model"
)

// Config holds settings for the assistant client. Region and Tier are the
// caller's support context, sent with every request.
type Config struct {
	BaseURL   string
	AuthToken string
	Region    string
	Tier      string
	Timeout   time.Duration
}

// Client talks to the assistant backend. One attempt per call; the caller
// decides how a failure surfaces.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates an assistant client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// SendTurn sends one user turn. An empty conversationID starts a new
// conversation; otherwise the conversation is continued by id. The product
// map may be empty when the environment context has not finished loading.
func (c *Client) SendTurn(ctx context.Context, text, conversationID string, products model.ProductMap) (*model.TurnResult, error) {
	endpoint := c.cfg.BaseURL + "/api/v1/chat"
	if conversationID != "" {
		endpoint += "/" + url.PathEscape(conversationID)
	}

	if products == nil {
		products = model.ProductMap{}
	}
	payload := model.ChatRequest{
		Message:     text,
		EnvProducts: products,
		Region:      c.cfg.Region,
		Tier:        c.cfg.Tier,
	}

	var resp model.ChatResponse
	if err := c.postJSON(ctx, endpoint, &payload, &resp); err != nil {
		return nil, fmt.Errorf("send turn: %w", err)
	}
	return resp.ToResult(), nil
}

// Classify asks the backend to classify the conversation into suggested
// case fields.
func (c *Client) Classify(ctx context.Context, req *model.ClassificationRequest) (*model.Classification, error) {
	var resp model.Classification
	if err := c.postJSON(ctx, c.cfg.BaseURL+"/api/v1/classify", req, &resp); err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	return &resp, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
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
