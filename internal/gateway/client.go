// Package gateway is the HTTP client for the external AI gateway: chat
// completions, query embeddings, and automation execution.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("gateway: status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("gateway: status %d", e.Status)
}

// UpstreamStatus maps a gateway error to the status surfaced to chat callers:
// upstream 4xx pass through verbatim, everything else (5xx, network, timeout)
// becomes 503.
func UpstreamStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) && se.Status >= 400 && se.Status < 500 {
		return se.Status
	}
	return http.StatusServiceUnavailable
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type EntityContext struct {
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	EntityData map[string]any `json:"entity_data,omitempty"`
}

type ChatRequest struct {
	Messages      []Message      `json:"messages"`
	ModuleContext string         `json:"module_context,omitempty"`
	EntityContext *EntityContext `json:"entity_context,omitempty"`
	Model         string         `json:"model,omitempty"`
}

// ChatResult is the canonical completion shape the rest of the pipeline sees.
type ChatResult struct {
	Content    string
	Model      string
	TokensUsed int
}

type AutomationResult struct {
	Result         map[string]any
	TokensUsed     int
	ItemsProcessed int
	Model          string
}

type Client struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	if c.Client == nil {
		return errors.New("gateway: http client is nil")
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// chatRespBody tolerates the gateway's heterogeneous completion shapes.
type chatRespBody struct {
	Message *struct {
		Content    string `json:"content"`
		Model      string `json:"model"`
		TokensUsed int    `json:"tokens_used"`
	} `json:"message"`
	Content    string `json:"content"`
	Text       string `json:"text"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
	Usage      *struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error string `json:"error,omitempty"`
}

func (b *chatRespBody) normalize() (*ChatResult, error) {
	if b.Error != "" {
		return nil, errors.New(b.Error)
	}

	out := &ChatResult{
		Content:    b.Content,
		Model:      b.Model,
		TokensUsed: b.TokensUsed,
	}
	if out.Content == "" {
		out.Content = b.Text
	}
	if b.Message != nil {
		if b.Message.Content != "" {
			out.Content = b.Message.Content
		}
		if b.Message.Model != "" {
			out.Model = b.Message.Model
		}
		if b.Message.TokensUsed > 0 {
			out.TokensUsed = b.Message.TokensUsed
		}
	}
	if out.TokensUsed == 0 && b.Usage != nil {
		out.TokensUsed = b.Usage.TotalTokens
	}

	if out.Content == "" {
		return nil, errors.New("gateway: empty completion")
	}
	return out, nil
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	var decoded chatRespBody
	if err := c.post(ctx, "/chat", req, &decoded); err != nil {
		return nil, err
	}
	return decoded.normalize()
}

type embedRespBody struct {
	Embedding []float32 `json:"embedding"`
	Data      []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// Embed returns the vector for a free-text query. The embedding may be at the
// top level or nested under data[0].
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var decoded embedRespBody
	if err := c.post(ctx, "/embed", map[string]string{"text": text}, &decoded); err != nil {
		return nil, err
	}
	if decoded.Error != "" {
		return nil, errors.New(decoded.Error)
	}
	if len(decoded.Embedding) > 0 {
		return decoded.Embedding, nil
	}
	if len(decoded.Data) > 0 && len(decoded.Data[0].Embedding) > 0 {
		return decoded.Data[0].Embedding, nil
	}
	return nil, errors.New("gateway: empty embedding")
}

type automationRunReq struct {
	AutomationType   string         `json:"automation_type"`
	AutomationConfig map[string]any `json:"automation_config"`
	TenantID         string         `json:"tenant_id"`
}

type automationRespBody struct {
	Result         map[string]any `json:"result"`
	TokensUsed     int            `json:"tokens_used"`
	ItemsProcessed int            `json:"items_processed"`
	Model          string         `json:"model"`
	Error          string         `json:"error,omitempty"`
}

func (c *Client) RunAutomation(ctx context.Context, automationType string, config map[string]any, tenantID string) (*AutomationResult, error) {
	var decoded automationRespBody
	err := c.post(ctx, "/automation/run", automationRunReq{
		AutomationType:   automationType,
		AutomationConfig: config,
		TenantID:         tenantID,
	}, &decoded)
	if err != nil {
		return nil, err
	}
	if decoded.Error != "" {
		return nil, errors.New(decoded.Error)
	}
	return &AutomationResult{
		Result:         decoded.Result,
		TokensUsed:     decoded.TokensUsed,
		ItemsProcessed: decoded.ItemsProcessed,
		Model:          decoded.Model,
	}, nil
}
