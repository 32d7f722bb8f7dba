package admin

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lumenweb/webchat-core/internal/chatapi"
	"github.com/lumenweb/webchat-core/internal/observability/metrics"
	"github.com/lumenweb/webchat-core/pkg/logging"
)

var tracer = otel.Tracer("webchat/admin")

// Console is the operator-side client: a read-through cache over the
// backend's conversation store with optimistic writes. The backend owns
// the durable copy; on write failure the cache rolls back and a one-line
// banner carries the error.
type Console struct {
	api       *chatapi.AdminClient
	logger    *logging.Logger
	metrics   *metrics.WidgetMetrics
	pollEvery time.Duration

	pollBusy atomic.Bool

	mu            sync.Mutex
	conversations []chatapi.Conversation
	threads       map[string][]chatapi.AdminMessage
	selected      string
	banner        string
	started       bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewConsole creates a console over the admin API.
func NewConsole(api *chatapi.AdminClient, pollEvery time.Duration, logger *logging.Logger, m *metrics.WidgetMetrics) *Console {
	if logger == nil {
		logger = logging.Default()
	}
	if pollEvery <= 0 {
		pollEvery = 5 * time.Second
	}
	return &Console{
		api:       api,
		logger:    logger,
		metrics:   m,
		pollEvery: pollEvery,
		threads:   make(map[string][]chatapi.AdminMessage),
		done:      make(chan struct{}),
	}
}

// Refresh reloads the conversation list. Explicit refreshes surface
// errors in the banner and to the caller; background ones stay silent.
func (c *Console) Refresh(ctx context.Context, explicit bool) error {
	convs, err := c.api.ListConversations(ctx)
	if err != nil {
		if explicit {
			c.setBanner("failed to load conversations: " + err.Error())
			return err
		}
		c.logger.Debug("admin: background refresh failed", "error", err)
		return nil
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].LastMessageAt > convs[j].LastMessageAt
	})

	c.mu.Lock()
	c.conversations = convs
	c.mu.Unlock()
	return nil
}

// Conversations returns the cached list, newest activity first.
func (c *Console) Conversations() []chatapi.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]chatapi.Conversation, len(c.conversations))
	copy(out, c.conversations)
	return out
}

// Open fetches and caches one conversation's thread and selects it for
// background refreshing.
func (c *Console) Open(ctx context.Context, conversationID string) ([]chatapi.AdminMessage, error) {
	msgs, err := c.api.Messages(ctx, conversationID)
	if err != nil {
		c.setBanner("failed to load thread: " + err.Error())
		return nil, err
	}

	c.mu.Lock()
	c.threads[conversationID] = msgs
	c.selected = conversationID
	c.mu.Unlock()
	return msgs, nil
}

// Thread returns the cached thread for a conversation.
func (c *Console) Thread(conversationID string) []chatapi.AdminMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := c.threads[conversationID]
	out := make([]chatapi.AdminMessage, len(msgs))
	copy(out, msgs)
	return out
}

// Reply posts an operator reply with an optimistic cache append. On
// failure the optimistic entry is removed and the banner set.
func (c *Console) Reply(ctx context.Context, conversationID, content string) error {
	ctx, span := tracer.Start(ctx, "admin.reply")
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	temp := chatapi.AdminMessage{
		ID:        "pending-" + uuid.New().String(),
		Role:      "assistant",
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
		Channel:   "admin",
	}
	c.mu.Lock()
	c.threads[conversationID] = append(c.threads[conversationID], temp)
	c.mu.Unlock()

	msg, err := c.api.Reply(ctx, conversationID, content)
	if err != nil {
		c.removeThreadMessage(conversationID, temp.ID)
		c.setBanner("reply failed: " + err.Error())
		c.metrics.ObserveAdminReply("error")
		return err
	}

	c.mu.Lock()
	thread := c.threads[conversationID]
	for i := range thread {
		if thread[i].ID == temp.ID {
			thread[i] = *msg
			break
		}
	}
	c.mu.Unlock()
	c.metrics.ObserveAdminReply("ok")
	return nil
}

// SetHandoff flips the handoff flag optimistically and rolls back the
// cached value if the backend rejects the update.
func (c *Console) SetHandoff(ctx context.Context, conversationID string, handoff bool) error {
	ctx, span := tracer.Start(ctx, "admin.set_handoff")
	defer span.End()
	span.SetAttributes(attribute.Bool("handoff", handoff))

	prev, found := c.flipHandoff(conversationID, handoff)

	conv, err := c.api.SetHandoff(ctx, conversationID, handoff)
	if err != nil {
		if found {
			c.flipHandoff(conversationID, prev)
		}
		c.setBanner("handoff update failed: " + err.Error())
		return err
	}

	// Adopt the server's copy wholesale.
	c.mu.Lock()
	for i := range c.conversations {
		if c.conversations[i].ID == conversationID {
			c.conversations[i] = *conv
			break
		}
	}
	c.mu.Unlock()
	return nil
}

// Banner returns and clears the current error banner.
func (c *Console) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.banner
	c.banner = ""
	return b
}

// Start launches the background refresh loop.
func (c *Console) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.pollLoop()
}

// Stop halts background refreshing and waits for it to exit.
func (c *Console) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	c.mu.Unlock()

	close(c.done)
	c.wg.Wait()
}

func (c *Console) pollLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.pollOnce()
		}
	}
}

// pollOnce refreshes the list and the selected thread. Overlapping
// ticks are dropped; failures are silent.
func (c *Console) pollOnce() {
	if !c.pollBusy.CompareAndSwap(false, true) {
		return
	}
	defer c.pollBusy.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), c.pollEvery)
	defer cancel()

	_ = c.Refresh(ctx, false)

	c.mu.Lock()
	selected := c.selected
	c.mu.Unlock()
	if selected == "" {
		return
	}

	msgs, err := c.api.Messages(ctx, selected)
	if err != nil {
		c.logger.Debug("admin: background thread refresh failed", "error", err)
		return
	}
	c.mu.Lock()
	c.threads[selected] = msgs
	c.mu.Unlock()
}

func (c *Console) setBanner(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.banner = text
}

func (c *Console) removeThreadMessage(conversationID, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	thread := c.threads[conversationID]
	for i := range thread {
		if thread[i].ID == id {
			c.threads[conversationID] = append(thread[:i], thread[i+1:]...)
			return
		}
	}
}

// flipHandoff sets the cached handoff flag and returns the previous
// value for rollback.
func (c *Console) flipHandoff(conversationID string, handoff bool) (prev, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.conversations {
		if c.conversations[i].ID == conversationID {
			prev = c.conversations[i].Handoff
			c.conversations[i].Handoff = handoff
			return prev, true
		}
	}
	return false, false
}
