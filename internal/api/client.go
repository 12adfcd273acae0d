// Package api is the HTTP client for the coaching backend. Every call
// takes a context; send cancellation flows through it and is reported
// distinctly from failures via IsAborted.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"clarity/internal/conversation"
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the coaching backend for a single user.
type Client struct {
	baseURL string
	userID  string
	client  *http.Client
}

// NewClient builds a client. Chat exchanges can take a while on the
// backend side, so the timeout is generous; interactive cancellation
// goes through the request context instead.
func NewClient(baseURL, userID string) *Client {
	return &Client{
		baseURL: baseURL,
		userID:  userID,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// SendMessage posts one exchange and returns the reply.
func (c *Client) SendMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	req.UserID = c.userID
	var out ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/coach/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Conversations fetches the user's threads. The server returns oldest
// first; the list is reversed here so callers always see newest first.
func (c *Client) Conversations(ctx context.Context) ([]conversation.Conversation, error) {
	var out conversationList
	path := fmt.Sprintf("/api/coach/conversations/%s", c.userID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	convs := make([]conversation.Conversation, 0, len(out.Conversations))
	for i := len(out.Conversations) - 1; i >= 0; i-- {
		r := out.Conversations[i]
		convs = append(convs, conversation.Conversation{
			ID:        r.ID,
			Title:     r.Title,
			CreatedAt: time.UnixMilli(r.CreatedAt),
		})
	}
	return convs, nil
}

// History fetches the full message list of one thread.
func (c *Client) History(ctx context.Context, conversationID string) ([]conversation.Message, error) {
	var out historyResponse
	path := fmt.Sprintf("/api/coach/conversations/%s/%s", c.userID, conversationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// DeleteConversation removes a thread server-side.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	path := fmt.Sprintf("/api/coach/conversations/%s/%s", c.userID, conversationID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do runs one request. Non-2xx responses become *APIError with the
// server's detail message when it sent one.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail errorBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &detail)
		msg := detail.Detail
		if msg == "" {
			msg = detail.Error
		}
		return &APIError{Status: resp.StatusCode, Detail: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
