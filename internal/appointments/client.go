package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TokenSource yields the bearer token presented to the platform API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource wrapping a fixed bearer token.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) { return string(t), nil }

// Client calls the appointment endpoints over HTTP. Used by services
// that sit outside the API process, such as the notification worker's
// admin tooling.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient creates an API client for the given platform base URL.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient overrides the underlying HTTP client (for testing).
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	if client != nil {
		c.httpClient = client
	}
	return c
}

// Reschedule posts a reschedule request and decodes the reply. A non-2xx
// reply is surfaced as an error carrying the server's message.
func (c *Client) Reschedule(ctx context.Context, req RescheduleRequest) (*RescheduleResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("appointments: encode reschedule request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reschedule-appointment", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("appointments: build reschedule request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: resolve token: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("appointments: reschedule call: %w", err)
	}
	defer resp.Body.Close()

	var decoded RescheduleResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("appointments: decode reschedule reply (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !decoded.Success {
		msg := decoded.Error
		if msg == "" {
			msg = decoded.Message
		}
		return nil, fmt.Errorf("appointments: reschedule rejected (status %d): %s", resp.StatusCode, msg)
	}
	return &decoded, nil
}
