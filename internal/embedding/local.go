package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "http://localhost:11434/api/embed"
	defaultModel   = "nomic-embed-text"
	defaultTimeout = 30 * time.Second
)

// LocalClient embeds text via an Ollama-compatible HTTP endpoint. Requests
// carry an explicit timeout; expiry surfaces as a normal error the caller
// can report and retry.
type LocalClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// LocalClientOption configures a LocalClient.
type LocalClientOption func(*LocalClient)

// WithBaseURL sets the inference server URL.
func WithBaseURL(url string) LocalClientOption {
	return func(c *LocalClient) { c.baseURL = url }
}

// WithModel sets the model name.
func WithModel(model string) LocalClientOption {
	return func(c *LocalClient) { c.model = model }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) LocalClientOption {
	return func(c *LocalClient) { c.client.Timeout = d }
}

// NewLocalClient creates an embedding client that talks to an
// Ollama-compatible HTTP endpoint. Defaults to localhost:11434 with
// nomic-embed-text.
func NewLocalClient(opts ...LocalClientOption) *LocalClient {
	c := &LocalClient{
		baseURL: defaultBaseURL,
		model:   defaultModel,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns the embedding vector for the given text.
func (c *LocalClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embed request returned %d: %s", resp.StatusCode, msg)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(parsed.Embeddings) == 0 || len(parsed.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("embed response contained no embedding")
	}
	return parsed.Embeddings[0], nil
}
