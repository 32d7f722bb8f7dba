package convlog

import (
	"context"
	"strconv"
	"sync"

	"github.com/lumenweb/webchat-core/internal/session"
	"github.com/lumenweb/webchat-core/pkg/logging"
)

// HighWaterMark is the per-lead poll cursor: the newest message
// timestamp confirmed by a successful poll. Monotonically
// non-decreasing, persisted on every advance, never rolled back.
type HighWaterMark struct {
	store  session.Store
	logger *logging.Logger

	mu     sync.Mutex
	leadID string
	ts     int64
}

// NewHighWaterMark loads the persisted cursor for leadID (which may be
// empty when no lead exists yet).
func NewHighWaterMark(ctx context.Context, store session.Store, leadID string, logger *logging.Logger) *HighWaterMark {
	if logger == nil {
		logger = logging.Default()
	}
	h := &HighWaterMark{store: store, logger: logger}
	h.Rebind(ctx, leadID)
	return h
}

// Value returns the current cursor in unix milliseconds.
func (h *HighWaterMark) Value() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ts
}

// Advance moves the cursor forward to ts if ts is newer, persisting the
// new value. Older or zero timestamps are ignored.
func (h *HighWaterMark) Advance(ctx context.Context, ts int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ts <= h.ts {
		return
	}
	h.ts = ts
	if h.leadID == "" {
		return
	}
	if err := h.store.Set(ctx, session.KeyLastSeen(h.leadID), strconv.FormatInt(ts, 10)); err != nil {
		h.logger.Debug("hwm: persist failed", "error", err)
	}
}

// Rebind switches to another lead's cursor, loading its persisted value.
func (h *HighWaterMark) Rebind(ctx context.Context, leadID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leadID = leadID
	h.ts = 0
	if leadID == "" {
		return
	}
	if v, ok, err := h.store.Get(ctx, session.KeyLastSeen(leadID)); err == nil && ok {
		if parsed, perr := strconv.ParseInt(v, 10, 64); perr == nil {
			h.ts = parsed
		}
	} else if err != nil {
		h.logger.Debug("hwm: load failed", "error", err)
	}
}

// Clear removes the persisted cursor for the current lead and zeroes the
// in-memory value. Hard reset only.
func (h *HighWaterMark) Clear(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.leadID != "" {
		if err := h.store.Delete(ctx, session.KeyLastSeen(h.leadID)); err != nil {
			h.logger.Debug("hwm: clear failed", "error", err)
		}
	}
	h.leadID = ""
	h.ts = 0
}
