package widget

import (
	"context"
	"time"

	"github.com/lumenweb/webchat-core/internal/chatapi"
	"github.com/lumenweb/webchat-core/internal/convlog"
	"github.com/lumenweb/webchat-core/internal/handoff"
)

// SetOpen records whether the widget panel is open. The polling cadence
// tightens while open and the interval is re-armed immediately.
func (c *Client) SetOpen(open bool) {
	c.open.Store(open)
	c.nudgePoll()
}

// Open reports whether the panel is open.
func (c *Client) Open() bool {
	return c.open.Load()
}

// nudgePoll re-arms the polling interval without queueing extra ticks.
func (c *Client) nudgePoll() {
	select {
	case c.rearm <- struct{}{}:
	default:
	}
}

func (c *Client) pollInterval() time.Duration {
	if c.open.Load() {
		return c.cfg.PollOpenEvery
	}
	return c.cfg.PollClosedEvery
}

// pollLoop re-arms a timer on every tick, open/closed change or lead
// change, and exits on Dispose.
func (c *Client) pollLoop() {
	defer c.wg.Done()

	for {
		timer := time.NewTimer(c.pollInterval())
		select {
		case <-c.done:
			timer.Stop()
			return
		case <-c.rearm:
			timer.Stop()
			continue
		case <-timer.C:
		}
		c.pollOnce()
	}
}

// pollOnce fetches feed items past the high-water mark and merges them.
// A tick that lands while a poll is in flight is dropped, not queued.
// Failures are silent; polling is best-effort.
func (c *Client) pollOnce() {
	if !c.pollBusy.CompareAndSwap(false, true) {
		return
	}
	defer c.pollBusy.Store(false)

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		cancel()
		return
	}
	c.pollCancel = cancel
	c.mu.Unlock()
	defer func() {
		cancel()
		c.mu.Lock()
		c.pollCancel = nil
		c.mu.Unlock()
	}()

	leadID := c.identity.LeadID(ctx)
	if leadID == "" {
		return
	}
	sessionID := c.identity.SessionID(ctx)

	msgs, err := c.api.WidgetMessages(ctx, leadID, sessionID, c.hwm.Value())
	if err != nil {
		if chatapi.IsAuthError(err) {
			c.metrics.ObservePoll("auth_reset")
			c.hardReset(context.Background(), true)
			return
		}
		c.metrics.ObservePoll("error")
		c.logger.Debug("widget: poll failed", "error", err)
		return
	}

	items := make([]convlog.PolledItem, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, convlog.PolledItem{
			ID:        m.ID,
			Role:      m.Role,
			Text:      m.Content,
			Timestamp: m.Timestamp(),
			Admin:     m.IsAdmin(),
		})
	}

	appended, maxTS := c.log.MergePolled(items)
	c.hwm.Advance(ctx, maxTS)

	for _, m := range appended {
		if m.Source != convlog.SourceAdmin {
			continue
		}
		// An operator message is ground truth that a human is engaged.
		if c.machine.Mode() != handoff.ModeOperator {
			_, next := c.machine.Apply(ctx, handoff.ReasonAdminMessage, handoff.ModeOperator)
			c.metrics.ObserveHandoff(string(handoff.ReasonAdminMessage), string(next))
		}
		break
	}
	c.metrics.ObservePoll("ok")
}
