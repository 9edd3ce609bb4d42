// Package dispatch posts the daily report to the configured webhook. The
// webhook is a sink: it accepts a JSON payload and answers with a status.
// Nothing here is retried; a failed dispatch leaves task data intact and the
// user may rerun the automation.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ldi/tally/pkg/models"
)

const defaultTimeout = 15 * time.Second

// Payload is the JSON document delivered to the webhook.
type Payload struct {
	HTMLContent string            `json:"htmlContent"`
	Tasks       []models.Snapshot `json:"tasks"`
	ToUser      []string          `json:"to_user"`
	CCUser      []string          `json:"cc_user"`
}

// Error reports a dispatch that did not succeed. StatusCode is 0 when the
// request never completed (timeout, connection failure).
type Error struct {
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("webhook dispatch failed: %v", e.Err)
	}
	return fmt.Sprintf("webhook dispatch failed: status %d", e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Err }

// Client posts payloads to a single webhook URL.
type Client struct {
	url    string
	client *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.client.Timeout = d }
}

func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts the payload. Success is HTTP 202 Accepted; anything else,
// including a timeout, returns a *Error.
func (c *Client) Send(ctx context.Context, p Payload) error {
	if c.url == "" {
		return &Error{Err: fmt.Errorf("webhook URL is not configured")}
	}

	body, err := json.MarshalIndent(p, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return &Error{StatusCode: resp.StatusCode}
	}
	return nil
}
