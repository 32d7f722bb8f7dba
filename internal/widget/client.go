package widget

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lumenweb/webchat-core/internal/chatapi"
	"github.com/lumenweb/webchat-core/internal/convlog"
	"github.com/lumenweb/webchat-core/internal/handoff"
	"github.com/lumenweb/webchat-core/internal/observability/metrics"
	"github.com/lumenweb/webchat-core/internal/session"
	"github.com/lumenweb/webchat-core/pkg/logging"
)

var tracer = otel.Tracer("webchat/widget")

// ErrEmptyText rejects sends with no content after trimming.
var ErrEmptyText = errors.New("widget: empty message text")

// ErrDisposed rejects operations after Dispose.
var ErrDisposed = errors.New("widget: client disposed")

// Config tunes one widget mount.
type Config struct {
	Lang             string
	Page             string
	PollOpenEvery    time.Duration
	PollClosedEvery  time.Duration
	RevealChunkRunes int
	RevealFramePace  time.Duration

	// NewScheduler overrides the reveal's frame source; tests inject a
	// manual scheduler here.
	NewScheduler func() convlog.FrameScheduler
}

func (cfg *Config) applyDefaults() {
	if cfg.Lang == "" {
		cfg.Lang = "az"
	}
	if cfg.Page == "" {
		cfg.Page = "/"
	}
	if cfg.PollOpenEvery <= 0 {
		cfg.PollOpenEvery = 3500 * time.Millisecond
	}
	if cfg.PollClosedEvery <= 0 {
		cfg.PollClosedEvery = 9 * time.Second
	}
	if cfg.RevealChunkRunes <= 0 {
		cfg.RevealChunkRunes = 3
	}
	if cfg.RevealFramePace <= 0 {
		cfg.RevealFramePace = 30 * time.Millisecond
	}
}

// SendOptions carries per-send flags.
type SendOptions struct {
	// RequestOperator marks an explicit "talk to operator" action, as
	// opposed to intent detected from the text.
	RequestOperator bool
}

// Client is the chat widget core for one mount: it owns the session
// identity, the handoff machine, the conversation log and the poll
// cursor, and runs the send pipeline and the polling loop. Construct
// with New, tear down with Dispose; nothing fires after Dispose
// returns.
type Client struct {
	cfg      Config
	api      *chatapi.Client
	store    session.Store
	identity *session.Identity
	machine  *handoff.Machine
	log      *convlog.Log
	hwm      *convlog.HighWaterMark
	logger   *logging.Logger
	metrics  *metrics.WidgetMetrics
	loc      locale

	open     atomic.Bool
	pollBusy atomic.Bool

	mu         sync.Mutex
	typing     bool
	sendSeq    int
	sendCancel context.CancelFunc
	pollCancel context.CancelFunc
	pending    string
	disposed   bool

	rearm chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
}

// New mounts a widget client on the given backend and state store. The
// polling loop starts immediately but stays idle until a lead id exists.
func New(cfg Config, api *chatapi.Client, store session.Store, logger *logging.Logger, m *metrics.WidgetMetrics) *Client {
	cfg.applyDefaults()
	if logger == nil {
		logger = logging.Default()
	}

	ctx := context.Background()
	c := &Client{
		cfg:     cfg,
		api:     api,
		store:   store,
		logger:  logger,
		metrics: m,
		loc:     localize(cfg.Lang),
		rearm:   make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	c.identity = session.NewIdentity(store, logger)
	sessionID := c.identity.SessionID(ctx)
	c.machine = handoff.NewMachine(ctx, store, sessionID, logger)
	c.log = convlog.NewLog()
	c.log.Reset(convlog.NewWelcomeMessage(c.loc.Welcome))
	c.hwm = convlog.NewHighWaterMark(ctx, store, c.identity.LeadID(ctx), logger)

	c.wg.Add(1)
	go c.pollLoop()

	c.logger.Info("widget: mounted", "session_id", sessionID, "lang", cfg.Lang)
	return c
}

// Messages returns a snapshot of the conversation log.
func (c *Client) Messages() []convlog.Message {
	return c.log.Messages()
}

// Mode returns the current handoff mode.
func (c *Client) Mode() handoff.Mode {
	return c.machine.Mode()
}

// Typing reports whether a send is awaiting its response; the UI
// disables the input while true.
func (c *Client) Typing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typing
}

// SessionID returns the active session id.
func (c *Client) SessionID() string {
	return c.identity.SessionID(context.Background())
}

// LeadID returns the backend-issued lead id, or "".
func (c *Client) LeadID() string {
	return c.identity.LeadID(context.Background())
}

// SetPending stores the draft input text (cleared by hard reset).
func (c *Client) SetPending(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = text
}

// Pending returns the draft input text.
func (c *Client) Pending() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// OnAppend registers the append side effect (scroll-to-bottom). It only
// fires while the panel is open.
func (c *Client) OnAppend(fn func(convlog.Message)) {
	c.log.OnAppend(func(m convlog.Message) {
		if c.open.Load() {
			fn(m)
		}
	})
}

// ToggleOperator flips handoff mode from an explicit user action. The
// off direction is local-only: the server is not consulted, and the next
// send goes out with request_operator=false so the backend cannot
// silently re-enable it.
func (c *Client) ToggleOperator(ctx context.Context, on bool) {
	if on {
		prev, next := c.machine.Apply(ctx, handoff.ReasonUserRequest, handoff.ModeOperator)
		if prev != next {
			c.metrics.ObserveHandoff(string(handoff.ReasonUserRequest), string(next))
			c.log.Append(convlog.NewSystemMessage(c.loc.OperatorOn))
		}
		return
	}
	prev, next := c.machine.Apply(ctx, handoff.ReasonUserDisabled, handoff.ModeAI)
	if prev != next {
		c.metrics.ObserveHandoff(string(handoff.ReasonUserDisabled), string(next))
		c.log.Append(convlog.NewSystemMessage(c.loc.OperatorOff))
	}
}

// Send runs the send pipeline for one user turn. It blocks until the
// reply is fully revealed, the request fails, or the send is superseded.
// Network failures never surface as errors: they become state changes or
// inline message content. Issuing a new Send aborts the previous
// in-flight one; the aborted send's placeholder is removed.
func (c *Client) Send(ctx context.Context, text string, opts SendOptions) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if c.sendCancel != nil {
		c.sendCancel()
	}
	sendCtx, cancel := context.WithCancel(ctx)
	c.sendSeq++
	seq := c.sendSeq
	c.sendCancel = cancel
	c.typing = true
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		if c.sendSeq == seq {
			c.typing = false
			c.sendCancel = nil
		}
		c.mu.Unlock()
	}()

	return c.runSend(sendCtx, text, opts)
}

func (c *Client) runSend(ctx context.Context, text string, opts SendOptions) error {
	ctx, span := tracer.Start(ctx, "widget.send")
	defer span.End()
	start := time.Now()

	sessionID := c.identity.SessionID(ctx)
	mode := c.machine.Mode()
	requestOperator := mode == handoff.ModeOperator || opts.RequestOperator || handoff.OperatorIntent(text)
	span.SetAttributes(
		attribute.Bool("request_operator", requestOperator),
		attribute.String("lang", c.cfg.Lang),
	)

	if requestOperator && mode == handoff.ModeAI {
		reason := handoff.ReasonIntentDetected
		if opts.RequestOperator {
			reason = handoff.ReasonUserRequest
		}
		_, next := c.machine.Apply(ctx, reason, handoff.ModeOperator)
		c.metrics.ObserveHandoff(string(reason), string(next))
	}

	userMsg := convlog.NewUserMessage(text)
	c.log.Append(userMsg)
	placeholder := convlog.NewAIPlaceholder()
	c.log.Append(placeholder)

	var leadID *string
	if id := c.identity.LeadID(ctx); id != "" {
		leadID = &id
	}

	req := chatapi.ChatRequest{
		Messages:        c.historyTurns(),
		SessionID:       sessionID,
		LeadID:          leadID,
		Lang:            c.cfg.Lang,
		Channel:         "web",
		Page:            c.cfg.Page,
		Source:          "ai_widget",
		RequestOperator: requestOperator,
	}

	resp, err := c.api.Chat(ctx, req)
	if err != nil {
		return c.finishSendError(ctx, err, placeholder.ID, start)
	}

	hadLead := c.identity.LeadID(ctx) != ""
	if resp.LeadID != "" {
		c.identity.SetLeadID(ctx, resp.LeadID)
		if !hadLead {
			c.hwm.Rebind(ctx, resp.LeadID)
			c.nudgePoll()
		}
	}

	if requestOperator {
		if resp.Handoff != nil {
			target := handoff.ModeAI
			if *resp.Handoff {
				target = handoff.ModeOperator
			}
			c.machine.Apply(ctx, handoff.ReasonServerConfirmed, target)
		}
	} else if c.machine.Mode() != handoff.ModeAI {
		// request_operator was false, so any handoff the server reports
		// is a stale default; the user's manual "operator off" wins.
		c.machine.Apply(ctx, handoff.ReasonServerConfirmed, handoff.ModeAI)
	}

	c.reveal(ctx, placeholder.ID, resp.Body())
	c.metrics.ObserveSend("ok", time.Since(start).Seconds())
	return nil
}

func (c *Client) finishSendError(ctx context.Context, err error, placeholderID string, start time.Time) error {
	switch {
	case ctx.Err() != nil:
		// Superseded or torn down: remove the placeholder, surface
		// nothing.
		c.log.Remove(placeholderID)
		c.metrics.ObserveSend("aborted", time.Since(start).Seconds())
		return nil
	case chatapi.IsAuthError(err):
		c.logger.Warn("widget: auth failure, resetting session", "error", err)
		c.metrics.ObserveSend("auth_reset", time.Since(start).Seconds())
		c.hardReset(context.Background(), true)
		return nil
	default:
		c.logger.Warn("widget: send failed", "error", err)
		c.log.UpdateText(placeholderID, c.loc.GenericError)
		c.metrics.ObserveSend("error", time.Since(start).Seconds())
		return nil
	}
}

// historyTurns builds the model-facing history: user turns plus
// assistant replies authored by the AI. Operator replies and local
// system notices are not assistant context; the empty placeholder drops
// out with them.
func (c *Client) historyTurns() []chatapi.ChatTurn {
	msgs := c.log.Messages()
	turns := make([]chatapi.ChatTurn, 0, len(msgs))
	for _, m := range msgs {
		if m.Kind != convlog.KindNormal || strings.TrimSpace(m.Text) == "" {
			continue
		}
		switch {
		case m.Role == convlog.RoleUser:
			turns = append(turns, chatapi.ChatTurn{Role: "user", Content: m.Text})
		case m.Role == convlog.RoleAI && m.Source != convlog.SourceAdmin:
			turns = append(turns, chatapi.ChatTurn{Role: "assistant", Content: m.Text})
		}
	}
	return turns
}

// reveal fills the placeholder with growing prefixes, one per frame.
// Cancellation mid-reveal leaves the partial text in place.
func (c *Client) reveal(ctx context.Context, id, text string) {
	r := convlog.NewReveal(text, c.cfg.RevealChunkRunes)
	sched := c.newScheduler()
	defer sched.Stop()

	for {
		prefix, ok := r.Next()
		if !ok {
			return
		}
		c.log.UpdateText(id, prefix)
		if r.Done() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-sched.Frames():
		}
	}
}

func (c *Client) newScheduler() convlog.FrameScheduler {
	if c.cfg.NewScheduler != nil {
		return c.cfg.NewScheduler()
	}
	return convlog.NewTickerScheduler(c.cfg.RevealFramePace)
}

// HardReset drops the whole client-side session: in-flight requests are
// aborted, persisted keys cleared, a fresh session id minted, handoff
// back to AI, and the log reduced to a single fresh welcome message.
func (c *Client) HardReset(ctx context.Context) {
	c.hardReset(ctx, false)
}

func (c *Client) hardReset(ctx context.Context, auth bool) {
	c.mu.Lock()
	if c.sendCancel != nil {
		c.sendCancel()
		c.sendCancel = nil
	}
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	c.typing = false
	c.pending = ""
	c.mu.Unlock()

	c.hwm.Clear(ctx)
	c.identity.Clear(ctx)
	newID := c.identity.SessionID(ctx)
	c.machine.Rebind(ctx, newID)
	c.metrics.ObserveHandoff(string(handoff.ReasonReset), string(handoff.ModeAI))
	c.log.Reset(convlog.NewWelcomeMessage(c.loc.Welcome))
	if auth {
		c.log.Append(convlog.NewSystemMessage(c.loc.SessionReset))
	}
	c.metrics.ObserveReset()
	c.nudgePoll()
	c.logger.Info("widget: hard reset", "session_id", newID, "auth_triggered", auth)
}

// Dispose tears the client down: aborts in-flight send and poll, stops
// the polling loop and waits for it to exit.
func (c *Client) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	if c.sendCancel != nil {
		c.sendCancel()
		c.sendCancel = nil
	}
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	c.mu.Unlock()

	close(c.done)
	c.wg.Wait()
	c.logger.Debug("widget: disposed")
}
