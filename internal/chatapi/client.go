package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lumenweb/webchat-core/pkg/logging"
)

// ErrUnauthorized marks a 401/403 from the backend; callers react with a
// hard session reset.
var ErrUnauthorized = errors.New("chatapi: unauthorized")

// HTTPError is any other non-2xx backend answer, kept verbatim for
// diagnostics.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("chatapi: backend returned %d: %s", e.Status, e.Body)
}

// IsAuthError classifies an error as an auth/session problem: either the
// sentinel, or error text mentioning credentials. Mirrors the widget's
// keyword classification of opaque failures.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range []string{"unauthorized", "forbidden", "token", "auth"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// Client speaks the widget side of the backend contract.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates a widget API client. httpClient may be nil.
func NewClient(baseURL string, httpClient *http.Client, logger *logging.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Chat posts one user turn with full history and returns the assistant
// reply. 401/403 map to ErrUnauthorized.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("chatapi: encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("chatapi: decode chat response: %w", err)
	}
	return &out, nil
}

// WidgetMessages fetches feed items newer than after (unix ms).
func (c *Client) WidgetMessages(ctx context.Context, leadID, sessionID string, after int64) ([]WidgetMessage, error) {
	q := url.Values{}
	q.Set("lead_id", leadID)
	q.Set("session_id", sessionID)
	q.Set("after", strconv.FormatInt(after, 10))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/widget/messages?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var out widgetMessagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("chatapi: decode messages response: %w", err)
	}
	return out.Messages, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: status %d: %s", ErrUnauthorized, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
