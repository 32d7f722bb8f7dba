package chatapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenweb/webchat-core/pkg/logging"
)

func TestChat_Success(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/ai/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		handoff := true
		_ = json.NewEncoder(w).Encode(ChatResponse{Text: "Salam!", LeadID: "lead-9", Handoff: &handoff})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, logging.New("error"))
	resp, err := c.Chat(context.Background(), ChatRequest{
		Messages:        []ChatTurn{{Role: "user", Content: "salam"}},
		SessionID:       "s1",
		Lang:            "az",
		Channel:         "web",
		Page:            "/pricing",
		Source:          "ai_widget",
		RequestOperator: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Salam!", resp.Body())
	assert.Equal(t, "lead-9", resp.LeadID)
	require.NotNil(t, resp.Handoff)
	assert.True(t, *resp.Handoff)

	assert.Equal(t, "s1", got.SessionID)
	assert.Nil(t, got.LeadID, "lead_id serializes as null before assignment")
	assert.True(t, got.RequestOperator)
	assert.Equal(t, "web", got.Channel)
	assert.Equal(t, "ai_widget", got.Source)
}

func TestChat_LegacyReplyField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"reply":"old shape"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	resp, err := c.Chat(context.Background(), ChatRequest{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "old shape", resp.Body())
}

func TestChat_Unauthorized(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "bad token", status)
		}))
		c := NewClient(srv.URL, nil, nil)
		_, err := c.Chat(context.Background(), ChatRequest{SessionID: "s1"})
		assert.ErrorIs(t, err, ErrUnauthorized, "status=%d", status)
		srv.Close()
	}
}

func TestChat_GenericErrorKeepsStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	_, err := c.Chat(context.Background(), ChatRequest{SessionID: "s1"})

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Status)
	assert.Contains(t, httpErr.Body, "upstream exploded")
}

func TestWidgetMessages_QueryAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "lead-1", r.URL.Query().Get("lead_id"))
		assert.Equal(t, "s1", r.URL.Query().Get("session_id"))
		assert.Equal(t, "1500", r.URL.Query().Get("after"))
		_, _ = w.Write([]byte(`{"messages":[
			{"id":"m1","role":"assistant","content":"hi","createdAt":1600},
			{"id":"m2","role":"assistant","content":"op here","ts":1700,"channel":"admin"},
			{"id":"m3","role":"assistant","content":"panel","ts":1800,"meta":{"source":"admin_panel"}}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, nil)
	msgs, err := c.WidgetMessages(context.Background(), "lead-1", "s1", 1500)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, int64(1600), msgs[0].Timestamp())
	assert.False(t, msgs[0].IsAdmin())
	assert.Equal(t, int64(1700), msgs[1].Timestamp())
	assert.True(t, msgs[1].IsAdmin())
	assert.True(t, msgs[2].IsAdmin(), "meta.source=admin_panel marks operator origin")
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(ErrUnauthorized))
	assert.True(t, IsAuthError(errors.New("invalid token supplied")))
	assert.True(t, IsAuthError(errors.New("Auth failure")))
	assert.False(t, IsAuthError(errors.New("connection refused")))
	assert.False(t, IsAuthError(nil))
}
