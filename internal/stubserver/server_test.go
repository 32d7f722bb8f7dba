package stubserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adminconsole "github.com/lumenweb/webchat-core/internal/admin"
	"github.com/lumenweb/webchat-core/internal/chatapi"
	"github.com/lumenweb/webchat-core/internal/convlog"
	"github.com/lumenweb/webchat-core/internal/handoff"
	"github.com/lumenweb/webchat-core/internal/session"
	"github.com/lumenweb/webchat-core/internal/widget"
	"github.com/lumenweb/webchat-core/pkg/logging"
)

const testSecret = "test-admin-secret"

func newStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(testSecret, logging.New("error")).Router())
	t.Cleanup(srv.Close)
	return srv
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := MintToken(testSecret, "tester", time.Minute)
	require.NoError(t, err)
	return token
}

func TestChat_AssignsLeadAndReplies(t *testing.T) {
	srv := newStub(t)
	api := chatapi.NewClient(srv.URL, nil, logging.New("error"))

	resp, err := api.Chat(context.Background(), chatapi.ChatRequest{
		Messages:  []chatapi.ChatTurn{{Role: "user", Content: "salam"}},
		SessionID: "sess-1",
		Lang:      "az",
		Channel:   "web",
		Source:    "ai_widget",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.LeadID)
	assert.Equal(t, cannedReplies["az"], resp.Body())
	require.NotNil(t, resp.Handoff)
	assert.False(t, *resp.Handoff)
}

func TestChat_RequestOperatorEngagesHandoff(t *testing.T) {
	srv := newStub(t)
	api := chatapi.NewClient(srv.URL, nil, logging.New("error"))

	resp, err := api.Chat(context.Background(), chatapi.ChatRequest{
		Messages:        []chatapi.ChatTurn{{Role: "user", Content: "operator please"}},
		SessionID:       "sess-2",
		Lang:            "en",
		RequestOperator: true,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Handoff)
	assert.True(t, *resp.Handoff)
	assert.Equal(t, operatorAcks["en"], resp.Body())
}

func TestAdmin_RequiresValidToken(t *testing.T) {
	srv := newStub(t)

	for name, token := range map[string]string{
		"missing": "",
		"garbage": "not-a-jwt",
	} {
		api := chatapi.NewAdminClient(srv.URL, token, nil, logging.New("error"))
		_, err := api.ListConversations(context.Background())
		assert.ErrorIs(t, err, chatapi.ErrUnauthorized, "case=%s", name)
	}
}

func TestEndToEnd_OperatorReplyReachesWidget(t *testing.T) {
	srv := newStub(t)
	ctx := context.Background()

	// Visitor sends a message through the widget core.
	w := widget.New(widget.Config{
		Lang:             "en",
		PollOpenEvery:    10 * time.Millisecond,
		PollClosedEvery:  20 * time.Millisecond,
		RevealChunkRunes: 1 << 20,
	}, chatapi.NewClient(srv.URL, nil, logging.New("error")), session.NewMemoryStore(), logging.New("error"), nil)
	t.Cleanup(w.Dispose)
	w.SetOpen(true)

	require.NoError(t, w.Send(ctx, "hello, anyone there?", widget.SendOptions{}))
	require.NotEmpty(t, w.LeadID())

	// Operator finds the conversation and replies.
	console := adminconsole.NewConsole(
		chatapi.NewAdminClient(srv.URL, adminToken(t), nil, logging.New("error")),
		time.Hour, logging.New("error"), nil)
	require.NoError(t, console.Refresh(ctx, true))
	convs := console.Conversations()
	require.Len(t, convs, 1)
	require.NoError(t, console.Reply(ctx, convs[0].ID, "operator here, how can I help?"))

	// The widget polls the reply in and flips to operator mode.
	require.Eventually(t, func() bool {
		for _, m := range w.Messages() {
			if m.Source == convlog.SourceAdmin && m.Text == "operator here, how can I help?" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, handoff.ModeOperator, w.Mode())
}

func TestEndToEnd_HandoffToggleRoundTrip(t *testing.T) {
	srv := newStub(t)
	ctx := context.Background()

	api := chatapi.NewClient(srv.URL, nil, logging.New("error"))
	_, err := api.Chat(ctx, chatapi.ChatRequest{
		Messages:  []chatapi.ChatTurn{{Role: "user", Content: "hi"}},
		SessionID: "sess-h",
		Lang:      "en",
	})
	require.NoError(t, err)

	adminAPI := chatapi.NewAdminClient(srv.URL, adminToken(t), nil, logging.New("error"))
	convs, err := adminAPI.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	require.False(t, convs[0].Handoff)

	conv, err := adminAPI.SetHandoff(ctx, convs[0].ID, true)
	require.NoError(t, err)
	assert.True(t, conv.Handoff)

	conv, err = adminAPI.SetHandoff(ctx, convs[0].ID, false)
	require.NoError(t, err)
	assert.False(t, conv.Handoff)
}

func TestWidgetMessages_UnknownLeadIsEmpty(t *testing.T) {
	srv := newStub(t)
	resp, err := http.Get(srv.URL + "/api/widget/messages?lead_id=nope&session_id=s&after=0")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newStub(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
