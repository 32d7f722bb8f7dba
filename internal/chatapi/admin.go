package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lumenweb/webchat-core/pkg/logging"
)

// Conversation is the admin view of one widget conversation.
type Conversation struct {
	ID            string `json:"id"`
	SessionID     string `json:"session_id"`
	LeadID        string `json:"lead_id"`
	Lang          string `json:"lang"`
	Channel       string `json:"channel"`
	Page          string `json:"page"`
	Handoff       bool   `json:"handoff"`
	LastMessageAt int64  `json:"last_message_at"`
}

// AdminMessage is one message of an admin-viewed thread.
type AdminMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	Channel   string `json:"channel,omitempty"`
}

type conversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

type adminMessagesResponse struct {
	Messages []AdminMessage `json:"messages"`
}

type replyResponse struct {
	Message AdminMessage `json:"message"`
}

type handoffResponse struct {
	Conversation Conversation `json:"conversation"`
}

// AdminClient speaks the privileged side of the contract. Every request
// carries the bearer token; the legacy x-admin-token header is sent too
// for backends that predate the bearer scheme.
type AdminClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewAdminClient creates an admin API client.
func NewAdminClient(baseURL, token string, httpClient *http.Client, logger *logging.Logger) *AdminClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ListConversations fetches the conversation index.
func (c *AdminClient) ListConversations(ctx context.Context) ([]Conversation, error) {
	var out conversationsResponse
	if err := c.do(ctx, http.MethodGet, "/api/admin/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// Messages fetches the thread for one conversation.
func (c *AdminClient) Messages(ctx context.Context, conversationID string) ([]AdminMessage, error) {
	var out adminMessagesResponse
	path := "/api/admin/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Reply posts an operator reply into a conversation.
func (c *AdminClient) Reply(ctx context.Context, conversationID, content string) (*AdminMessage, error) {
	var out replyResponse
	path := "/api/admin/conversations/" + url.PathEscape(conversationID) + "/reply"
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

// SetHandoff updates the handoff flag. One canonical shape only:
// PATCH /api/admin/conversations/{id}/handoff with {"handoff": bool}.
func (c *AdminClient) SetHandoff(ctx context.Context, conversationID string, handoff bool) (*Conversation, error) {
	var out handoffResponse
	path := "/api/admin/conversations/" + url.PathEscape(conversationID) + "/handoff"
	body := map[string]bool{"handoff": handoff}
	if err := c.do(ctx, http.MethodPatch, path, body, &out); err != nil {
		return nil, err
	}
	return &out.Conversation, nil
}

func (c *AdminClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("chatapi: encode admin request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("x-admin-token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("chatapi: decode admin response: %w", err)
	}
	return nil
}
