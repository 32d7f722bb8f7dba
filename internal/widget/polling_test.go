package widget

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenweb/webchat-core/internal/chatapi"
	"github.com/lumenweb/webchat-core/internal/convlog"
	"github.com/lumenweb/webchat-core/internal/handoff"
	"github.com/lumenweb/webchat-core/internal/session"
	"github.com/lumenweb/webchat-core/pkg/logging"
)

// newPollingClient mounts a client with a pre-seeded lead id and fast
// polling against the given backend.
func newPollingClient(t *testing.T, backend *testBackend) *Client {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, session.KeyLeadID, "lead-1"))

	api := chatapi.NewClient(srv.URL, nil, logging.New("error"))
	c := New(Config{
		Lang:             "en",
		PollOpenEvery:    10 * time.Millisecond,
		PollClosedEvery:  20 * time.Millisecond,
		RevealChunkRunes: 1 << 20,
	}, api, store, logging.New("error"), nil)
	t.Cleanup(c.Dispose)
	c.SetOpen(true)
	return c
}

func TestPolling_AdminMessageForcesOperatorMode(t *testing.T) {
	backend := &testBackend{
		poll: func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"messages":[
				{"id":"adm1","role":"assistant","content":"operator joined","ts":5000,"channel":"admin"}
			]}`))
		},
	}
	c := newPollingClient(t, backend)

	require.Equal(t, handoff.ModeAI, c.Mode())
	require.Eventually(t, func() bool {
		return c.Mode() == handoff.ModeOperator
	}, 2*time.Second, 5*time.Millisecond)

	var found *convlog.Message
	for _, m := range c.Messages() {
		if m.ID == "adm1" {
			found = &m
			break
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, convlog.SourceAdmin, found.Source)
}

func TestPolling_DedupAcrossTicks(t *testing.T) {
	backend := &testBackend{
		poll: func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"messages":[
				{"id":"m1","role":"assistant","content":"same item","ts":100}
			]}`))
		},
	}
	c := newPollingClient(t, backend)

	require.Eventually(t, func() bool { return c.log.Seen("m1") }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond) // several more ticks repeat the item

	count := 0
	for _, m := range c.Messages() {
		if m.ID == "m1" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(100), c.hwm.Value(), "cursor advanced once and held")
}

func TestPolling_UsesAfterCursor(t *testing.T) {
	var lastAfter atomic.Value
	backend := &testBackend{
		poll: func(w http.ResponseWriter, r *http.Request) {
			lastAfter.Store(r.URL.Query().Get("after"))
			_, _ = w.Write([]byte(`{"messages":[
				{"id":"m9","role":"assistant","content":"hi","ts":7000}
			]}`))
		},
	}
	c := newPollingClient(t, backend)

	require.Eventually(t, func() bool {
		v, _ := lastAfter.Load().(string)
		return v == "7000"
	}, 2*time.Second, 5*time.Millisecond, "after= follows the high-water mark")
	assert.Equal(t, int64(7000), c.hwm.Value())
}

func TestPolling_FailuresAreSilent(t *testing.T) {
	var calls atomic.Int32
	backend := &testBackend{
		poll: func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			http.Error(w, "flaky backend", http.StatusInternalServerError)
		},
	}
	c := newPollingClient(t, backend)

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond,
		"polling keeps trying on the next tick")

	msgs := c.Messages()
	require.Len(t, msgs, 1, "no user-visible error from poll failures")
	assert.Equal(t, convlog.KindWelcome, msgs[0].Kind)
}

func TestPolling_NoLeadNoRequests(t *testing.T) {
	var calls atomic.Int32
	backend := &testBackend{
		poll: func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(`{"messages":[]}`))
		},
	}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	api := chatapi.NewClient(srv.URL, nil, logging.New("error"))
	c := New(Config{
		Lang:            "en",
		PollOpenEvery:   5 * time.Millisecond,
		PollClosedEvery: 5 * time.Millisecond,
	}, api, session.NewMemoryStore(), logging.New("error"), nil)
	t.Cleanup(c.Dispose)
	c.SetOpen(true)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, calls.Load(), "polling is a no-op without a lead id")
}

func TestPolling_AuthFailureHardResets(t *testing.T) {
	backend := &testBackend{
		poll: func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "expired token", http.StatusForbidden)
		},
	}
	c := newPollingClient(t, backend)

	require.Eventually(t, func() bool { return c.LeadID() == "" }, 2*time.Second, 5*time.Millisecond,
		"auth failure from the poll path clears the lead")
	assert.Equal(t, handoff.ModeAI, c.Mode())
}

func TestDispose_StopsPolling(t *testing.T) {
	var calls atomic.Int32
	backend := &testBackend{
		poll: func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			_, _ = w.Write([]byte(`{"messages":[]}`))
		},
	}
	c := newPollingClient(t, backend)

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	c.Dispose()

	settled := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, calls.Load(), "no poll fires after Dispose")
}
